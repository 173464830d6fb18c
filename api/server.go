// Package api is the thin HTTP surface over the match service: a synchronous
// search endpoint and an inspection listing.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hupe1980/facesearch/search"
	"github.com/hupe1980/facesearch/store"
)

// apiKeyHeader carries the shared API key on search requests.
const apiKeyHeader = "X-FBI-Key"

// Verifier is the subset of the match service the API needs.
type Verifier interface {
	Verify(ctx context.Context, imageURL string) ([]search.Match, error)
}

// Server serves the HTTP API.
type Server struct {
	store    *store.Store
	verifier Verifier
	apiKey   string
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer creates the API server. apiKey guards the search endpoint.
func NewServer(st *store.Store, verifier Verifier, apiKey string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    st,
		verifier: verifier,
		apiKey:   apiKey,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	// Go 1.21's ServeMux lacks method patterns; guard the method per handler.
	s.mux.HandleFunc("/fast-search", requireMethod(http.MethodPost, s.handleFastSearch))
	s.mux.HandleFunc("/list-faces", requireMethod(http.MethodGet, s.handleListFaces))
	return s
}

// requireMethod replicates the method matching a "METHOD /path" ServeMux
// pattern would provide on Go 1.22+.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type searchRequest struct {
	ImageToVerifyURL string `json:"image_to_verify_url"`
}

type searchResponse struct {
	Matches []search.Match `json:"matches"`
}

func (s *Server) handleFastSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageToVerifyURL == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.store.Len() == 0 {
		writeError(w, http.StatusBadRequest, "Database is empty. Run ingestion first.")
		return
	}

	if r.Header.Get(apiKeyHeader) != s.apiKey {
		writeError(w, http.StatusBadRequest, "invalid or missing api key")
		return
	}

	matches, err := s.verifier.Verify(r.Context(), req.ImageToVerifyURL)
	if err != nil {
		if errors.Is(err, search.ErrDownloadFailed) {
			writeError(w, http.StatusBadRequest, "Download error")
			return
		}
		s.logger.Error("search failed", "url", req.ImageToVerifyURL, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Matches: matches})
}

func (s *Server) handleListFaces(w http.ResponseWriter, _ *http.Request) {
	records := s.store.All()
	urls := make([]string, 0, len(records))
	for _, rec := range records {
		urls = append(urls, rec.ReferenceURL)
	}
	writeJSON(w, http.StatusOK, urls)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
