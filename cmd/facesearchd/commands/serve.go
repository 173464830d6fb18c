package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/facesearch/api"
	"github.com/hupe1980/facesearch/blobstore"
	"github.com/hupe1980/facesearch/config"
	"github.com/hupe1980/facesearch/database"
	"github.com/hupe1980/facesearch/embed"
	"github.com/hupe1980/facesearch/fetch"
	"github.com/hupe1980/facesearch/ingest"
	"github.com/hupe1980/facesearch/search"
	"github.com/hupe1980/facesearch/store"
	"github.com/hupe1980/facesearch/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and queue worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	logger := newLogger(cfg)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	snapOpts, err := snapshotOptions(cfg)
	if err != nil {
		return err
	}

	st := store.New(store.DefaultOptions)
	if err := st.Load(ctx, blobs, cfg.SnapshotName); err != nil {
		// An empty index is a valid, if degraded, state.
		if errors.Is(err, blobstore.ErrNotFound) {
			logger.Info("no snapshot found, starting empty", "name", cfg.SnapshotName)
		} else {
			logger.Warn("snapshot load failed, starting empty", "name", cfg.SnapshotName, "error", err)
		}
	} else {
		logger.Info("snapshot loaded", "name", cfg.SnapshotName, "records", st.Len())
	}

	db, err := database.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer db.Close()

	embedder := embed.NewHTTPEmbedder(cfg.ModelURL, 30*time.Second)

	// Query downloads retry each attempt with a short timeout; ingestion
	// downloads use one longer attempt per URL variant.
	queryFetcher := fetch.New(fetch.Options{Timeout: 5 * time.Second, MaxAttempts: 5})
	ingestFetcher := fetch.New(fetch.Options{Timeout: 10 * time.Second, MaxAttempts: 1})

	svc := search.NewService(st, queryFetcher, embedder, search.ServiceOptions{
		Threshold: cfg.MatchThreshold,
		TopK:      cfg.MatchTopK,
		Logger:    logger,
	})

	pipeline := ingest.NewPipeline(db, ingestFetcher, embedder, st, blobs, ingest.Options{
		SnapshotName: cfg.SnapshotName,
		Snapshot:     snapOpts,
		Logger:       logger,
	})

	w := worker.New(worker.Config{
		URL:          cfg.AMQPURL(),
		ConsumeQueue: cfg.RabbitConsumeQueue,
		PublishQueue: cfg.RabbitPublishQueue,
		Logger:       logger,
	}, svc, db)

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "error", err)
		}
	}()

	if cfg.RunSyncAtStartup {
		go func() {
			if _, err := pipeline.Run(ctx); err != nil {
				logger.Error("startup ingestion failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(st, svc, cfg.APIKey, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
