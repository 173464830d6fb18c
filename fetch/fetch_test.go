package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func serveImage(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
	}
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/img.jpg": serveImage([]byte("jpeg-bytes")),
		})

		data, err := New(Options{}).Fetch(ctx, srv.URL+"/img.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg-bytes"), data)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/gone": func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		})

		_, err := New(Options{}).Fetch(ctx, srv.URL+"/gone")
		var bad *ErrBadStatus
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, http.StatusNotFound, bad.StatusCode)
	})

	t.Run("HTMLErrorPageRejected", func(t *testing.T) {
		// Some hosts serve HTML error pages with a 200 status.
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/page": func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<html>blocked</html>"))
			},
		})

		_, err := New(Options{}).Fetch(ctx, srv.URL+"/page")
		assert.ErrorIs(t, err, ErrUnsupportedContent)
	})

	t.Run("SendsBrowserUserAgent", func(t *testing.T) {
		var ua string
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/img.jpg": func(w http.ResponseWriter, r *http.Request) {
				ua = r.Header.Get("User-Agent")
				serveImage([]byte("x"))(w, r)
			},
		})

		_, err := New(Options{}).Fetch(ctx, srv.URL+"/img.jpg")
		require.NoError(t, err)
		assert.Contains(t, ua, "Mozilla")
	})
}

func TestFetchFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("PrimaryWins", func(t *testing.T) {
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/primary.jpg":  serveImage([]byte("primary")),
			"/fallback.jpg": serveImage([]byte("fallback")),
		})

		data, used, err := New(Options{}).FetchFirst(ctx, srv.URL+"/primary.jpg", srv.URL+"/fallback.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("primary"), data)
		assert.Equal(t, srv.URL+"/primary.jpg", used)
	})

	t.Run("FallbackUsedOnPrimaryFailure", func(t *testing.T) {
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/fallback.jpg": serveImage([]byte("fallback")),
		})

		data, used, err := New(Options{}).FetchFirst(ctx, srv.URL+"/missing.jpg", srv.URL+"/fallback.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("fallback"), data)
		assert.Equal(t, srv.URL+"/fallback.jpg", used)
	})

	t.Run("BothFail", func(t *testing.T) {
		srv := newImageServer(t, nil)

		_, _, err := New(Options{}).FetchFirst(ctx, srv.URL+"/a.jpg", srv.URL+"/b.jpg")
		assert.Error(t, err)
	})

	t.Run("NoFallback", func(t *testing.T) {
		srv := newImageServer(t, nil)

		_, _, err := New(Options{}).FetchFirst(ctx, srv.URL+"/a.jpg", "")
		assert.Error(t, err)
	})
}

func TestFetchRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("StopsAtFirstSuccess", func(t *testing.T) {
		var calls atomic.Int32
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/flaky.jpg": func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				serveImage([]byte("finally"))(w, r)
			},
		})

		data, err := New(Options{MaxAttempts: 5}).FetchRetry(ctx, srv.URL+"/flaky.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("finally"), data)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("BoundedAttempts", func(t *testing.T) {
		var calls atomic.Int32
		srv := newImageServer(t, map[string]http.HandlerFunc{
			"/down.jpg": func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		})

		_, err := New(Options{MaxAttempts: 5}).FetchRetry(ctx, srv.URL+"/down.jpg")
		assert.ErrorIs(t, err, ErrAllAttemptsFailed)
		assert.Equal(t, int32(5), calls.Load())
	})
}
