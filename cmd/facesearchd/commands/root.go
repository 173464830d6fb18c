package commands

import (
	"context"
	"fmt"
	"log/slog"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/hupe1980/facesearch"
	"github.com/hupe1980/facesearch/blobstore"
	"github.com/hupe1980/facesearch/blobstore/minio"
	"github.com/hupe1980/facesearch/blobstore/s3"
	"github.com/hupe1980/facesearch/config"
	"github.com/hupe1980/facesearch/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "facesearchd",
	Short: "Face embedding index and match service",
	Long: `facesearchd keeps an in-memory index of reference face embeddings and
answers match queries synchronously over HTTP and asynchronously via
durable queue jobs. Configuration is read from environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(cfg config.Config) *slog.Logger {
	return facesearch.NewJSONLogger(facesearch.ParseLevel(cfg.LogLevel))
}

// openBlobStore builds the snapshot backend selected by the configuration.
func openBlobStore(ctx context.Context, cfg config.Config) (blobstore.BlobStore, error) {
	switch cfg.SnapshotBackend {
	case "local":
		return blobstore.NewLocalStore(cfg.SnapshotDir)
	case "minio":
		client, err := miniogo.New(cfg.MinioEndpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, cfg.SnapshotBucket, cfg.SnapshotPrefix), nil
	case "s3":
		client, err := s3.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return s3.NewStore(client, cfg.SnapshotBucket, cfg.SnapshotPrefix), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}

func snapshotOptions(cfg config.Config) (store.SnapshotOptions, error) {
	comp, ok := store.CompressionByName(cfg.SnapshotCompression)
	if !ok {
		return store.SnapshotOptions{}, fmt.Errorf("unknown snapshot compression %q", cfg.SnapshotCompression)
	}
	return store.SnapshotOptions{Compression: comp}, nil
}
