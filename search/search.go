// Package search implements similarity ranking over the face store and the
// match service used by both the HTTP API and the queue worker.
package search

import (
	"math"
	"sort"

	"github.com/hupe1980/facesearch/distance"
	"github.com/hupe1980/facesearch/store"
)

const (
	// DefaultThreshold is the cosine-distance match cutoff. A tuned
	// model-specific constant (Facenet), not derived analytically.
	DefaultThreshold = 0.40

	// DefaultTopK bounds the number of returned matches.
	DefaultTopK = 5
)

// Match is one ranked result. Confidence is similarity expressed as a
// percentage in [0,100], not the raw distance.
type Match struct {
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
}

// Rank scans all records linearly and returns those whose cosine distance to
// query is strictly below threshold, sorted by confidence descending with
// ties kept in store order, truncated to topK.
//
// O(N·D) with N in the low hundreds; the linear scan is intentional. Rank has
// no side effects and is safe to call concurrently as long as the record
// snapshot it iterates is not concurrently mutated.
func Rank(query []float32, records []store.FaceRecord, threshold float64, topK int) []Match {
	matches := make([]Match, 0)
	for _, rec := range records {
		// Records of a different dimension cannot be compared to the query;
		// skip them rather than index out of range in the distance kernel.
		if len(rec.Embedding) != len(query) {
			continue
		}
		d := distance.Cosine(query, rec.Embedding)
		if d < threshold {
			matches = append(matches, Match{
				URL:        rec.ReferenceURL,
				Confidence: roundConfidence(1 - d),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// roundConfidence converts a similarity in [0,1] to a percentage rounded to
// two decimals.
func roundConfidence(similarity float64) float64 {
	return math.Round(similarity*100*100) / 100
}
