// Package similarity ranks candidate tracks against the centroid of a
// playlist in feature space.
package similarity

import (
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/features"
)

// Engine scores the candidates of one playlist request. An engine is built
// for a single playlist and is not safe for concurrent use.
type Engine interface {
	// WeightFeatures up-weights the named candidate columns. It may be
	// applied at most once.
	WeightFeatures(columns []string) error
	// CalculateSimilarity scores every candidate against the playlist.
	CalculateSimilarity() error
	// Scores returns uri -> score for every candidate.
	Scores() (map[string]float64, error)
	// TopN returns the n best candidates, best first.
	TopN(n int) ([]domain.Recommendation, error)
}

// Weight returns a copy of t where every column listed in columns is
// multiplied by multiplier+1 and every other column is unchanged.
func Weight(t *features.Table, columns []string, multiplier float64) *features.Table {
	member := make(map[string]bool, len(columns))
	for _, c := range columns {
		member[c] = true
	}
	return t.ScaleColumns(func(col string) float64 {
		if member[col] {
			return multiplier + 1
		}
		return 1
	})
}
