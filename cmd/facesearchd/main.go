// facesearchd maintains an in-memory index of reference face embeddings and
// answers "does this face match a known record" queries over HTTP and via
// durable queue jobs.
//
// Usage:
//
//	facesearchd serve    # Run the API server, queue worker and snapshot load
//	facesearchd sync     # Run one ingestion pass and exit
//
// All configuration comes from environment variables; see the config package.
package main

import (
	"os"

	"github.com/hupe1980/facesearch/cmd/facesearchd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
