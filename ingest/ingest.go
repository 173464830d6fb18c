// Package ingest reconciles the face store against an external candidate
// list: parallel download, serial embedding, batched commit.
package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/facesearch/blobstore"
	"github.com/hupe1980/facesearch/embed"
	"github.com/hupe1980/facesearch/store"
)

// Candidate is one (primary, fallback) URL pair representing a face to be
// indexed. FallbackURL may be empty.
type Candidate struct {
	PrimaryURL  string
	FallbackURL string
}

// Source enumerates candidate images from the external relational store.
type Source interface {
	ListCandidates(ctx context.Context) ([]Candidate, error)
}

// Fetcher downloads a candidate image, trying the primary URL first and the
// fallback on failure, and reports which URL produced the bytes.
type Fetcher interface {
	FetchFirst(ctx context.Context, primary, fallback string) (data []byte, usedURL string, err error)
}

// Options contains configuration options for the pipeline.
type Options struct {
	// BatchSize bounds peak memory from downloaded images. Defaults to 10.
	BatchSize int

	// DownloadWorkers bounds the download fan-out. Defaults to 5.
	DownloadWorkers int

	// MaxCandidates caps one invocation; the pipeline is designed for
	// periodic incremental runs, not full backfill. Defaults to 200.
	MaxCandidates int

	// SnapshotName is the blob the store is snapshotted to after each batch.
	SnapshotName string

	// Snapshot controls snapshot encoding.
	Snapshot store.SnapshotOptions

	// Logger receives structured pipeline logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the pipeline.
var DefaultOptions = Options{
	BatchSize:       10,
	DownloadWorkers: 5,
	MaxCandidates:   200,
	SnapshotName:    "fbi_vectors",
}

// Pipeline is the batched ingestion job. It is the only writer of the store
// and writes only at batch-commit boundaries.
type Pipeline struct {
	source   Source
	fetcher  Fetcher
	embedder embed.Embedder
	store    *store.Store
	blobs    blobstore.BlobStore
	opts     Options
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(source Source, fetcher Fetcher, embedder embed.Embedder, st *store.Store, blobs blobstore.BlobStore, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions.BatchSize
	}
	if opts.DownloadWorkers <= 0 {
		opts.DownloadWorkers = DefaultOptions.DownloadWorkers
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultOptions.MaxCandidates
	}
	if opts.SnapshotName == "" {
		opts.SnapshotName = DefaultOptions.SnapshotName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		fetcher:  fetcher,
		embedder: embedder,
		store:    st,
		blobs:    blobs,
		opts:     opts,
	}
}

type downloaded struct {
	data []byte
	url  string
}

// Run executes one ingestion pass and returns the number of newly indexed
// records. Per-candidate failures (download or embedding) drop that candidate
// silently and never fail the run; only candidate enumeration errors do.
//
// Re-running after a mid-batch crash is safe: committed URLs are naturally
// skipped on the next pass.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	candidates, err := p.source.ListCandidates(ctx)
	if err != nil {
		return 0, err
	}
	if len(candidates) > p.opts.MaxCandidates {
		candidates = candidates[:p.opts.MaxCandidates]
	}

	seen := p.store.URLSet()
	fresh := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.PrimaryURL == "" {
			continue
		}
		if _, ok := seen[c.PrimaryURL]; ok {
			continue
		}
		if c.FallbackURL != "" {
			if _, ok := seen[c.FallbackURL]; ok {
				continue
			}
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		p.opts.Logger.Info("nothing new to index", "candidates", len(candidates))
		return 0, nil
	}

	p.opts.Logger.Info("indexing new faces",
		"new", len(fresh),
		"batch_size", p.opts.BatchSize,
	)

	added := 0
	for start := 0; start < len(fresh); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(fresh))
		added += p.runBatch(ctx, fresh[start:end], seen)
	}

	p.opts.Logger.Info("ingestion finished", "added", added)
	return added, nil
}

// runBatch processes one batch: download stage in parallel, embedding stage
// strictly serial, then a single commit (append plus snapshot). It returns
// the number of records committed and records their URLs in seen.
func (p *Pipeline) runBatch(ctx context.Context, batch []Candidate, seen map[string]struct{}) int {
	images := p.downloadBatch(ctx, batch)

	// The embedding model is not assumed reentrant, so this stage runs one
	// image at a time.
	records := make([]store.FaceRecord, 0, len(images))
	for _, img := range images {
		if _, ok := seen[img.url]; ok {
			// Two candidates in this run resolved to the same URL.
			continue
		}

		embedding, err := p.embedder.Embed(ctx, img.data)
		if err != nil {
			p.opts.Logger.Warn("embedding failed", "url", img.url, "error", err)
			continue
		}

		records = append(records, store.FaceRecord{
			ReferenceURL: img.url,
			Embedding:    embedding,
		})
		seen[img.url] = struct{}{}
	}
	if len(records) == 0 {
		return 0
	}

	if err := p.store.Append(records...); err != nil {
		p.opts.Logger.Error("batch append failed", "count", len(records), "error", err)
		return 0
	}

	// The in-memory store stays authoritative when the snapshot write fails;
	// the divergence closes on the next successful batch commit.
	if err := p.store.Save(ctx, p.blobs, p.opts.SnapshotName, p.opts.Snapshot); err != nil {
		p.opts.Logger.Error("snapshot save failed", "name", p.opts.SnapshotName, "error", err)
	} else {
		p.opts.Logger.Info("batch committed", "added", len(records), "total", p.store.Len())
	}
	return len(records)
}

// downloadBatch fans the batch out over a bounded worker group. Results keep
// candidate order; failed downloads leave gaps that are compacted away.
func (p *Pipeline) downloadBatch(ctx context.Context, batch []Candidate) []downloaded {
	results := make([]*downloaded, len(batch))

	var g errgroup.Group
	g.SetLimit(p.opts.DownloadWorkers)
	for i, cand := range batch {
		i, cand := i, cand
		g.Go(func() error {
			data, usedURL, err := p.fetcher.FetchFirst(ctx, cand.PrimaryURL, cand.FallbackURL)
			if err != nil {
				p.opts.Logger.Debug("download failed", "primary", cand.PrimaryURL, "error", err)
				return nil
			}
			results[i] = &downloaded{data: data, url: usedURL}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; failed downloads drop silently

	images := make([]downloaded, 0, len(batch))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}
