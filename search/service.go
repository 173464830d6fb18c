package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/facesearch/embed"
	"github.com/hupe1980/facesearch/store"
)

// ErrDownloadFailed is returned by Verify when the query image could not be
// downloaded after all bounded attempts.
var ErrDownloadFailed = errors.New("search: image download failed")

// Fetcher downloads a query image with bounded retry.
type Fetcher interface {
	FetchRetry(ctx context.Context, url string) ([]byte, error)
}

// ServiceOptions contains configuration options for the match service.
type ServiceOptions struct {
	// Threshold is the cosine-distance match cutoff. Defaults to
	// DefaultThreshold.
	Threshold float64

	// TopK bounds the number of returned matches. Defaults to DefaultTopK.
	TopK int

	// Logger receives structured service logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Service orchestrates one "verify this image against the store" request:
// fetch, embed, rank, top-K. It is read-only with respect to the store and
// safe for concurrent use.
type Service struct {
	store    *store.Store
	fetcher  Fetcher
	embedder embed.Embedder
	opts     ServiceOptions
}

// NewService creates a match service over the given store and collaborators.
func NewService(st *store.Store, fetcher Fetcher, embedder embed.Embedder, opts ServiceOptions) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    st,
		fetcher:  fetcher,
		embedder: embedder,
		opts:     opts,
	}
}

// Verify downloads the image, embeds it and ranks it against the current
// store snapshot.
//
// A download failure after all attempts yields ErrDownloadFailed. A model
// failure or "no face detected" outcome yields zero matches and a nil error;
// callers must check for empty match lists rather than assume failure
// implies an error.
func (s *Service) Verify(ctx context.Context, imageURL string) ([]Match, error) {
	image, err := s.fetcher.FetchRetry(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	query, err := s.embedder.Embed(ctx, image)
	if err != nil {
		// "Could not analyze" is indistinguishable from a true negative in
		// the result; the log line is the only place the two diverge.
		s.opts.Logger.Warn("no embedding for query image", "url", imageURL, "error", err)
		return []Match{}, nil
	}

	// A stale snapshot loaded under a different model, or a misbehaving
	// model server, can produce a query of the wrong dimension. Treat it
	// like an unanalyzable image: zero matches, logged.
	if dim := s.store.Dimension(); dim > 0 && len(query) != dim {
		s.opts.Logger.Warn("query embedding dimension mismatch",
			"url", imageURL,
			"got", len(query),
			"want", dim,
		)
		return []Match{}, nil
	}

	matches := Rank(query, s.store.All(), s.opts.Threshold, s.opts.TopK)

	s.opts.Logger.Debug("verify completed",
		"url", imageURL,
		"records", s.store.Len(),
		"matches", len(matches),
	)
	return matches, nil
}
