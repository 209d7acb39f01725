package similarity

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/features"
)

func mustTable(t *testing.T, keys, columns []string, rows [][]float64) *features.Table {
	t.Helper()
	table, err := features.NewTable(keys, columns, rows)
	require.NoError(t, err)
	return table
}

func scored(t *testing.T, e Engine) map[string]float64 {
	t.Helper()
	require.NoError(t, e.CalculateSimilarity())
	scores, err := e.Scores()
	require.NoError(t, err)
	return scores
}

func uris(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.URI
	}
	return out
}

func TestCosine_IdenticalTrackRanksFirst(t *testing.T) {
	table := mustTable(t,
		[]string{"A", "B", "C"},
		[]string{"f1", "f2", "f3"},
		[][]float64{{1, 0, 1}, {1, 0, 1}, {0, 1, 0.5}},
	)
	e := NewCosineFromFeatures(table, []string{"A"}, nil)
	require.NoError(t, e.CalculateSimilarity())

	top, err := e.TopN(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, uris(top))
	assert.InDelta(t, 1.0, top[0].Score, 1e-12)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 2, top[1].Rank)
}

func TestCosine_IdenticalTrackRanksFirst_FromRawRows(t *testing.T) {
	base := domain.Track{
		Name: "Same", ArtistName: "Artist", Album: "Album",
		ArtistPopularity: 50, Popularity: 50, ArtistGenres: domain.StringSlice{"pop"},
		Danceability: 0.5, Energy: 0.5, Key: 1, Loudness: -6, Mode: 1, Speechiness: 0.1,
		Acousticness: 0.1, Instrumentalness: 0.1, Liveness: 0.1, Valence: 0.5,
		Tempo: 120, DurationMs: 200000, TimeSignature: 4,
	}
	a, b := base, base
	a.URI, b.URI = "A", "B"
	c := domain.Track{
		URI: "C", Name: "Other", ArtistPopularity: 10, Popularity: 90,
		ArtistGenres: domain.StringSlice{"metal"}, Danceability: 0.1, Energy: 0.9,
		Key: 7, Loudness: -2, Mode: 0, Speechiness: 0.3, Acousticness: 0.8,
		Instrumentalness: 0.9, Liveness: 0.7, Valence: 0.1, Tempo: 180,
		DurationMs: 400000, TimeSignature: 3,
	}

	corpus := features.TracksTable([]domain.Track{a, b, c})
	playlist := features.TracksTable([]domain.Track{a})

	e, err := NewCosine(playlist, corpus, nil)
	require.NoError(t, err)
	require.NoError(t, e.CalculateSimilarity())

	top, err := e.TopN(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, uris(top))
	assert.InDelta(t, 1.0, top[0].Score, 1e-9)
	assert.Equal(t, "Same", top[0].Name)
	assert.Equal(t, "Artist", top[0].Artist)
	assert.Equal(t, "Album", top[0].Album)
	assert.Equal(t, "Other", top[1].Name)
	assert.NotNil(t, e.TextModel())
}

func TestCosine_WeightingChangesRanking(t *testing.T) {
	newEngine := func() *Cosine {
		table := mustTable(t,
			[]string{"P", "X", "Y"},
			[]string{"danceability", "energy"},
			[][]float64{{0.5, 1}, {1, 1}, {0, 1}},
		)
		return NewCosineFromFeatures(table, []string{"P"}, nil)
	}

	plain := newEngine()
	require.NoError(t, plain.CalculateSimilarity())
	top, err := plain.TopN(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, uris(top))

	weighted := newEngine()
	require.NoError(t, weighted.WeightFeatures([]string{"danceability"}))
	require.NoError(t, weighted.CalculateSimilarity())
	top, err = weighted.TopN(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X"}, uris(top))

	scores, _ := weighted.Scores()
	assert.InDelta(t, 2.5/(1.118033988749895*3.1622776601683795), scores["X"], 1e-9)
}

func TestWeight(t *testing.T) {
	table := mustTable(t,
		[]string{"a", "b"},
		[]string{"x", "y", "z"},
		[][]float64{{1, 2, 3}, {0.5, 0, -1}},
	)

	weighted := Weight(table, []string{"y", "not-a-column"}, 2)
	for _, key := range table.Keys() {
		orig, _ := table.Row(key)
		got, _ := weighted.Row(key)
		assert.Equal(t, orig[0], got[0])
		assert.Equal(t, 3*orig[1], got[1])
		assert.Equal(t, orig[2], got[2])
	}
}

func TestCosine_WeightFeaturesOnce(t *testing.T) {
	table := mustTable(t, []string{"P", "X"}, []string{"x"}, [][]float64{{1}, {2}})
	e := NewCosineFromFeatures(table, []string{"P"}, nil)

	require.NoError(t, e.WeightFeatures([]string{"x"}))
	assert.ErrorIs(t, e.WeightFeatures([]string{"x"}), ErrAlreadyWeighted)

	v, _ := e.CandidateFeatures().Value("X", "x")
	assert.Equal(t, 6.0, v)
	v, _ = e.Features().Value("X", "x")
	assert.Equal(t, 2.0, v, "full table stays unweighted")
	v, _ = e.PlaylistFeatures().Value("P", "x")
	assert.Equal(t, 1.0, v, "playlist rows stay unweighted")
}

func TestCosine_ConstructorWeights(t *testing.T) {
	tracks := []domain.Track{
		{URI: "A", ArtistGenres: domain.StringSlice{"pop"}, Danceability: 0.2, Energy: 0.1},
		{URI: "B", ArtistGenres: domain.StringSlice{"rock"}, Danceability: 1, Energy: 0.3},
		{URI: "C", ArtistGenres: domain.StringSlice{"jazz"}, Danceability: 0, Energy: 1},
	}
	corpus := features.TracksTable(tracks)

	e, err := NewCosine(features.TracksTable(tracks[:1]), corpus, []string{"danceability"})
	require.NoError(t, err)
	assert.ErrorIs(t, e.WeightFeatures([]string{"energy"}), ErrAlreadyWeighted)

	v, _ := e.CandidateFeatures().Value("B", "danceability")
	assert.Equal(t, 3.0, v)
	v, _ = e.CandidateFeatures().Value("B", "energy")
	assert.InDelta(t, 2.0/9, v, 1e-12)
}

func TestCosine_Partition(t *testing.T) {
	table := mustTable(t,
		[]string{"a", "b", "c", "d", "e"},
		[]string{"x"},
		[][]float64{{1}, {2}, {3}, {4}, {5}},
	)
	e := NewCosineFromFeatures(table, []string{"b", "e", "zz"}, nil)

	pl := e.PlaylistFeatures().Keys()
	cand := e.CandidateFeatures().Keys()
	assert.Equal(t, []string{"b", "e"}, pl)
	assert.Equal(t, []string{"a", "c", "d"}, cand)

	union := append(slices.Clone(pl), cand...)
	slices.Sort(union)
	assert.Equal(t, table.Keys(), union)
	for _, k := range pl {
		assert.NotContains(t, cand, k)
	}
}

func TestCosine_ScoresBoundedAndPrefix(t *testing.T) {
	table := mustTable(t,
		[]string{"p1", "p2", "a", "b", "c", "d", "e", "f"},
		[]string{"x", "y", "z"},
		[][]float64{
			{1, 0, 0}, {0, 1, 0},
			{1, 1, 0}, {-1, -1, 0}, {0, 0, 1}, {2, 2, 0}, {1, -1, 0}, {0.3, 0.9, 0.1},
		},
	)
	e := NewCosineFromFeatures(table, []string{"p1", "p2"}, nil)
	scores := scored(t, e)
	require.Len(t, scores, 6)

	for k, s := range scores {
		assert.GreaterOrEqual(t, s, -1.0, k)
		assert.LessOrEqual(t, s, 1.0, k)
	}
	assert.InDelta(t, 1.0, scores["a"], 1e-12)
	assert.InDelta(t, -1.0, scores["b"], 1e-12)

	all, err := e.TopN(100)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}

	for n := 1; n <= 6; n++ {
		top, err := e.TopN(n)
		require.NoError(t, err)
		assert.Len(t, top, n)
		assert.Equal(t, all[:n], top)
	}
}

func TestCosine_TiesKeepKeyOrder(t *testing.T) {
	table := mustTable(t,
		[]string{"p", "c3", "c1", "c2"},
		[]string{"x", "y"},
		[][]float64{{1, 0}, {2, 0}, {3, 0}, {1, 1}},
	)
	e := NewCosineFromFeatures(table, []string{"p"}, nil)
	require.NoError(t, e.CalculateSimilarity())

	top, err := e.TopN(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1", "c2"}, uris(top))
}

func TestCosine_NotReady(t *testing.T) {
	table := mustTable(t, []string{"p", "c"}, []string{"x"}, [][]float64{{1}, {1}})
	e := NewCosineFromFeatures(table, []string{"p"}, nil)

	_, err := e.Scores()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = e.TopN(1)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, e.CalculateSimilarity())
	_, err = e.TopN(1)
	assert.NoError(t, err)
}

func TestCosine_TopNInvalidArgument(t *testing.T) {
	table := mustTable(t, []string{"p", "c"}, []string{"x"}, [][]float64{{1}, {1}})
	e := NewCosineFromFeatures(table, []string{"p"}, nil)
	require.NoError(t, e.CalculateSimilarity())

	for _, n := range []int{0, -3} {
		_, err := e.TopN(n)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestCosine_EmptyPlaylist(t *testing.T) {
	table := mustTable(t, []string{"a"}, []string{"x"}, [][]float64{{1}})
	e := NewCosineFromFeatures(table, []string{"missing"}, nil)
	assert.ErrorIs(t, e.CalculateSimilarity(), ErrEmptyPlaylist)
}

func TestCosine_ZeroVectors(t *testing.T) {
	build := func(opts ...Option) *Cosine {
		table := mustTable(t,
			[]string{"p", "zero", "c"},
			[]string{"x", "y"},
			[][]float64{{1, 0}, {0, 0}, {1, 1}},
		)
		return NewCosineFromFeatures(table, []string{"p"}, nil, opts...)
	}

	t.Run("scores zero by default", func(t *testing.T) {
		scores := scored(t, build())
		assert.Equal(t, 0.0, scores["zero"])
		assert.InDelta(t, 1/1.4142135623730951, scores["c"], 1e-12)
	})

	t.Run("strict policy fails", func(t *testing.T) {
		err := build(WithStrictZeroVectors()).CalculateSimilarity()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUndefinedSimilarity))

		var undefined *UndefinedSimilarityError
		require.True(t, errors.As(err, &undefined))
		assert.Equal(t, "zero", undefined.URI)
	})

	t.Run("zero playlist vector", func(t *testing.T) {
		table := mustTable(t, []string{"p", "c"}, []string{"x"}, [][]float64{{0}, {1}})

		scores := scored(t, NewCosineFromFeatures(table, []string{"p"}, nil))
		assert.Equal(t, 0.0, scores["c"])

		err := NewCosineFromFeatures(table, []string{"p"}, nil, WithStrictZeroVectors()).CalculateSimilarity()
		var undefined *UndefinedSimilarityError
		require.ErrorAs(t, err, &undefined)
		assert.Empty(t, undefined.URI)
	})
}

func TestCosine_Deterministic(t *testing.T) {
	tracks := []domain.Track{
		{URI: "A", ArtistGenres: domain.StringSlice{"pop"}, Danceability: 0.2, Energy: 0.1, Key: 1, Tempo: 90},
		{URI: "B", ArtistGenres: domain.StringSlice{"rock", "pop rock"}, Danceability: 1, Energy: 0.3, Key: 2, Tempo: 120},
		{URI: "C", ArtistGenres: domain.StringSlice{"jazz"}, Danceability: 0, Energy: 1, Key: 1, Tempo: 140},
		{URI: "D", ArtistGenres: domain.StringSlice{"pop", "jazz"}, Danceability: 0.6, Energy: 0.6, Key: 5, Tempo: 100},
	}
	run := func() map[string]float64 {
		e, err := NewCosine(features.TracksTable(tracks[:2]), features.TracksTable(tracks), []string{"energy"})
		require.NoError(t, err)
		return scored(t, e)
	}

	first := run()
	assert.Equal(t, first, run())
	assert.Len(t, first, 2)
	for _, s := range first {
		assert.GreaterOrEqual(t, s, -1.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestNewCosine_PipelineErrors(t *testing.T) {
	tracks := []domain.Track{{URI: "A"}, {URI: "B"}}
	_, err := NewCosine(features.TracksTable(tracks[:1]), features.TracksTable(tracks), nil)
	assert.ErrorIs(t, err, features.ErrEmptyVocabulary)
}

func TestNewCosine_NilTables(t *testing.T) {
	corpus := features.TracksTable([]domain.Track{{URI: "A"}})

	_, err := NewCosine(nil, corpus, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCosine(corpus, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
