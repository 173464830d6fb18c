// Package facesearch provides structured logger construction shared by the
// facesearch service binaries.
//
// The service itself lives in the subpackages: store (the embedding index),
// ingest (batch ingestion), search (similarity ranking and match service),
// worker (queue consumer) and api (HTTP surface).
package facesearch
