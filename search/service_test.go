package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/facesearch/embed"
	"github.com/hupe1980/facesearch/store"
)

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) FetchRetry(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.DefaultOptions)
	require.NoError(t, s.Append(
		store.FaceRecord{ReferenceURL: "https://example.com/a.jpg", Embedding: []float32{1, 0}},
		store.FaceRecord{ReferenceURL: "https://example.com/b.jpg", Embedding: []float32{0, 1}},
	))
	return s
}

func TestServiceVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchFound", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, url string) ([]byte, error) {
			return []byte("image-bytes"), nil
		})
		embedder := embed.EmbedderFunc(func(_ context.Context, _ []byte) ([]float32, error) {
			return []float32{1, 0}, nil
		})

		svc := NewService(newTestStore(t), fetcher, embedder, ServiceOptions{})
		matches, err := svc.Verify(ctx, "https://example.com/query.jpg")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "https://example.com/a.jpg", matches[0].URL)
		assert.Equal(t, 100.0, matches[0].Confidence)
	})

	t.Run("DownloadFailed", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
			return nil, errors.New("connection refused")
		})
		embedder := embed.EmbedderFunc(func(_ context.Context, _ []byte) ([]float32, error) {
			t.Fatal("embedder must not be called when download fails")
			return nil, nil
		})

		svc := NewService(newTestStore(t), fetcher, embedder, ServiceOptions{})
		_, err := svc.Verify(ctx, "https://example.com/query.jpg")
		assert.ErrorIs(t, err, ErrDownloadFailed)
	})

	t.Run("NoFaceYieldsEmptyMatchesNotError", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
			return []byte("image-bytes"), nil
		})
		embedder := embed.EmbedderFunc(func(_ context.Context, _ []byte) ([]float32, error) {
			return nil, embed.ErrNoFace
		})

		svc := NewService(newTestStore(t), fetcher, embedder, ServiceOptions{})
		matches, err := svc.Verify(ctx, "https://example.com/query.jpg")
		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("WrongDimensionYieldsEmptyMatchesNotError", func(t *testing.T) {
		fetcher := fetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
			return []byte("image-bytes"), nil
		})
		// The store holds 2-dimensional vectors; a 3-dimensional query can
		// come from a model swap behind a stale snapshot.
		embedder := embed.EmbedderFunc(func(_ context.Context, _ []byte) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		})

		svc := NewService(newTestStore(t), fetcher, embedder, ServiceOptions{})
		matches, err := svc.Verify(ctx, "https://example.com/query.jpg")
		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("DoesNotMutateStore", func(t *testing.T) {
		st := newTestStore(t)
		before := st.All()

		fetcher := fetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
			return []byte("image-bytes"), nil
		})
		embedder := embed.EmbedderFunc(func(_ context.Context, _ []byte) ([]float32, error) {
			return []float32{1, 0}, nil
		})

		svc := NewService(st, fetcher, embedder, ServiceOptions{})
		_, err := svc.Verify(ctx, "https://example.com/query.jpg")
		require.NoError(t, err)
		assert.Equal(t, before, st.All())
	})
}
