// Package embed defines the face-embedding collaborator.
//
// The model itself is external; the core depends only on the Embedder
// interface so it is implementable and testable without the actual model.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoFace is returned when the model produced no usable embedding for an
// image. Callers treat it as "zero matches", not as a failure.
var ErrNoFace = errors.New("embed: no usable face embedding")

// Embedder computes a fixed-length face vector for an encoded image.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, image []byte) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, image []byte) ([]float32, error) {
	return f(ctx, image)
}

// HTTPEmbedder calls a model server over HTTP: it POSTs the raw image bytes
// and expects {"embedding": [...]} back. An empty embedding maps to ErrNoFace.
type HTTPEmbedder struct {
	endpoint string
	http     *http.Client
}

// NewHTTPEmbedder creates an embedder backed by the model server at endpoint.
func NewHTTPEmbedder(endpoint string, timeout time.Duration) *HTTPEmbedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEmbedder{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Embed sends the image to the model server and decodes the embedding.
func (e *HTTPEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		// The model server signals "no face detected" with 422.
		io.Copy(io.Discard, resp.Body)
		return nil, ErrNoFace
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: model returned status %d", resp.StatusCode)
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode model response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrNoFace
	}
	return out.Embedding, nil
}
