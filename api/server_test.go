package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/facesearch/search"
	"github.com/hupe1980/facesearch/store"
)

const testKey = "test-key"

type verifierFunc func(ctx context.Context, imageURL string) ([]search.Match, error)

func (f verifierFunc) Verify(ctx context.Context, imageURL string) ([]search.Match, error) {
	return f(ctx, imageURL)
}

func populatedStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.DefaultOptions)
	require.NoError(t, s.Append(
		store.FaceRecord{ReferenceURL: "https://example.com/a.jpg", Embedding: []float32{1, 0}},
		store.FaceRecord{ReferenceURL: "https://example.com/b.jpg", Embedding: []float32{0, 1}},
	))
	return s
}

func postSearch(t *testing.T, handler http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fast-search", strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-FBI-Key", key)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestFastSearch(t *testing.T) {
	okVerifier := verifierFunc(func(_ context.Context, _ string) ([]search.Match, error) {
		return []search.Match{{URL: "https://example.com/a.jpg", Confidence: 100}}, nil
	})

	t.Run("EmptyStoreRejected", func(t *testing.T) {
		srv := NewServer(store.New(store.DefaultOptions), okVerifier, testKey, nil)

		rr := postSearch(t, srv.Handler(), testKey, `{"image_to_verify_url": "https://example.com/q.jpg"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "empty")
	})

	t.Run("InvalidKeyRejected", func(t *testing.T) {
		srv := NewServer(populatedStore(t), okVerifier, testKey, nil)

		rr := postSearch(t, srv.Handler(), "wrong", `{"image_to_verify_url": "https://example.com/q.jpg"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = postSearch(t, srv.Handler(), "", `{"image_to_verify_url": "https://example.com/q.jpg"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("InvalidBodyRejected", func(t *testing.T) {
		srv := NewServer(populatedStore(t), okVerifier, testKey, nil)

		rr := postSearch(t, srv.Handler(), testKey, `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = postSearch(t, srv.Handler(), testKey, `not json`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("DownloadErrorRejected", func(t *testing.T) {
		failing := verifierFunc(func(_ context.Context, _ string) ([]search.Match, error) {
			return nil, fmt.Errorf("%w: unreachable", search.ErrDownloadFailed)
		})
		srv := NewServer(populatedStore(t), failing, testKey, nil)

		rr := postSearch(t, srv.Handler(), testKey, `{"image_to_verify_url": "https://example.com/q.jpg"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Download error")
	})

	t.Run("MatchesReturned", func(t *testing.T) {
		srv := NewServer(populatedStore(t), okVerifier, testKey, nil)

		rr := postSearch(t, srv.Handler(), testKey, `{"image_to_verify_url": "https://example.com/q.jpg"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Matches []search.Match `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, "https://example.com/a.jpg", resp.Matches[0].URL)
		assert.Equal(t, 100.0, resp.Matches[0].Confidence)
	})
}

func TestListFaces(t *testing.T) {
	srv := NewServer(populatedStore(t), nil, testKey, nil)

	req := httptest.NewRequest(http.MethodGet, "/list-faces", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var urls []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &urls))
	assert.Equal(t, []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}, urls)
}
