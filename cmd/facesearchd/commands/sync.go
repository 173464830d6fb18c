package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/facesearch/config"
	"github.com/hupe1980/facesearch/database"
	"github.com/hupe1980/facesearch/embed"
	"github.com/hupe1980/facesearch/fetch"
	"github.com/hupe1980/facesearch/ingest"
	"github.com/hupe1980/facesearch/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one ingestion pass against the candidate list and exit",
	Long: `sync loads the current snapshot, reconciles the index against the
external candidate list (download, embed, commit in batches) and writes the
updated snapshot back. Scheduling periodic runs is an external concern; wire
this command into cron or a systemd timer.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) error {
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
		logger.Warn("snapshot load failed, starting empty", "name", cfg.SnapshotName, "error", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline := ingest.NewPipeline(
		db,
		fetch.New(fetch.Options{Timeout: 10 * time.Second, MaxAttempts: 1}),
		embed.NewHTTPEmbedder(cfg.ModelURL, 30*time.Second),
		st,
		blobs,
		ingest.Options{
			SnapshotName: cfg.SnapshotName,
			Snapshot:     snapOpts,
			Logger:       logger,
		},
	)

	added, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("sync complete", "added", added, "total", st.Len())
	return nil
}
