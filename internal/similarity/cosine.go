package similarity

import (
	"fmt"
	"math"
	"slices"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/features"
	"github.com/cesargomez89/mias/internal/logger"
)

// Cosine ranks candidates by the cosine of the angle between each
// candidate row and the mean playlist row.
type Cosine struct {
	raw        *features.RawTable
	table      *features.Table
	model      *features.TextModel
	playlist   *features.Table
	candidates *features.Table

	weighted bool
	scored   bool
	scores   map[string]float64

	strict   bool
	pipeline features.Pipeline
	log      *logger.Logger
}

type Option func(*Cosine)

// WithStrictZeroVectors makes a zero-length candidate or playlist vector
// fail with UndefinedSimilarityError instead of scoring 0.
func WithStrictZeroVectors() Option {
	return func(c *Cosine) { c.strict = true }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Cosine) {
		if log != nil {
			c.log = log
		}
	}
}

// WithPipeline replaces the default cosine feature pipeline.
func WithPipeline(p features.Pipeline) Option {
	return func(c *Cosine) { c.pipeline = p }
}

var _ Engine = (*Cosine)(nil)

// NewCosine featurizes corpus in one batch, splits it by the keys of
// playlist and applies weights when any are given. corpus must already
// contain the playlist rows.
func NewCosine(playlist, corpus *features.RawTable, weights []string, opts ...Option) (*Cosine, error) {
	if playlist == nil || corpus == nil {
		return nil, fmt.Errorf("%w: playlist and corpus are required", ErrInvalidArgument)
	}
	c := newCosine(opts)
	c.raw = corpus

	table, model, err := c.pipeline.Transform(corpus, nil)
	if err != nil {
		return nil, fmt.Errorf("featurize corpus: %w", err)
	}
	c.table = table
	c.model = model
	c.split(playlist.Keys())

	if len(weights) > 0 {
		if err := c.WeightFeatures(weights); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewCosineFromFeatures builds an engine over an already featurized
// table. raw supplies display attributes for TopN and may be nil.
func NewCosineFromFeatures(table *features.Table, playlistKeys []string, raw *features.RawTable, opts ...Option) *Cosine {
	c := newCosine(opts)
	c.raw = raw
	c.table = table
	c.split(playlistKeys)
	return c
}

func newCosine(opts []Option) *Cosine {
	c := &Cosine{log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	if c.pipeline == nil {
		c.pipeline = features.NewCosinePipeline(c.log)
	}
	c.log = c.log.WithComponent("cosine")
	return c
}

func (c *Cosine) split(keys []string) {
	c.playlist, c.candidates = c.table.Split(keys)
	c.log.Debug("Split feature table",
		"playlist", c.playlist.Len(),
		"candidates", c.candidates.Len(),
		"features", c.table.Width(),
	)
}

func (c *Cosine) WeightFeatures(columns []string) error {
	if c.weighted {
		return ErrAlreadyWeighted
	}
	for _, col := range columns {
		if !slices.Contains(c.candidates.Columns(), col) {
			c.log.Warn("Weighted feature not in table", "feature", col)
		}
	}
	c.candidates = Weight(c.candidates, columns, constants.WeightMultiplier)
	c.weighted = true
	c.scored = false
	return nil
}

func (c *Cosine) CalculateSimilarity() error {
	vec, ok := c.playlist.Mean()
	if !ok {
		return ErrEmptyPlaylist
	}
	vnorm := norm(vec)
	if vnorm == 0 && c.strict {
		return &UndefinedSimilarityError{}
	}

	scores := make(map[string]float64, c.candidates.Len())
	for _, key := range c.candidates.Keys() {
		row, _ := c.candidates.Row(key)
		tnorm := norm(row)
		if tnorm == 0 || vnorm == 0 {
			if c.strict {
				return &UndefinedSimilarityError{URI: key}
			}
			scores[key] = 0
			continue
		}
		cos := dot(row, vec) / (tnorm * vnorm)
		scores[key] = max(-1, min(1, cos))
	}

	c.scores = scores
	c.scored = true
	c.log.Debug("Calculated similarity", "candidates", len(scores))
	return nil
}

func (c *Cosine) Scores() (map[string]float64, error) {
	if !c.scored {
		return nil, ErrNotReady
	}
	out := make(map[string]float64, len(c.scores))
	for k, v := range c.scores {
		out[k] = v
	}
	return out, nil
}

func (c *Cosine) TopN(n int) ([]domain.Recommendation, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: top n must be positive, got %d", ErrInvalidArgument, n)
	}
	if !c.scored {
		return nil, ErrNotReady
	}

	keys := c.candidates.Keys()
	slices.SortStableFunc(keys, func(a, b string) int {
		sa, sb := c.scores[a], c.scores[b]
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})
	if len(keys) > n {
		keys = keys[:n]
	}

	rows := c.rawRows(keys)
	out := make([]domain.Recommendation, len(keys))
	for i, key := range keys {
		rec := domain.Recommendation{
			URI:   key,
			Rank:  i + 1,
			Score: c.scores[key],
		}
		if r, ok := rows[key]; ok {
			rec.Name = c.raw.Get(r, domain.ColName)
			rec.Artist = c.raw.Get(r, domain.ColArtistName)
			rec.Album = c.raw.Get(r, domain.ColAlbum)
		}
		out[i] = rec
	}
	return out, nil
}

// rawRows maps each wanted key to its first row in the raw table.
func (c *Cosine) rawRows(keys []string) map[string]int {
	out := make(map[string]int, len(keys))
	if c.raw == nil {
		return out
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for r, k := range c.raw.Keys() {
		if _, seen := out[k]; want[k] && !seen {
			out[k] = r
		}
	}
	return out
}

// Features returns the full feature table before the split.
func (c *Cosine) Features() *features.Table { return c.table }

// PlaylistFeatures returns the playlist rows.
func (c *Cosine) PlaylistFeatures() *features.Table { return c.playlist }

// CandidateFeatures returns the candidate rows, weighted if weights were applied.
func (c *Cosine) CandidateFeatures() *features.Table { return c.candidates }

// TextModel is the genre model fitted at construction, nil for engines
// built from features.
func (c *Cosine) TextModel() *features.TextModel { return c.model }

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
