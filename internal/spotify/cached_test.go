package spotify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	Source
	artistCalls [][]string
}

func (m *mockSource) Artists(ctx context.Context, ids []string) ([]*ArtistObject, error) {
	m.artistCalls = append(m.artistCalls, ids)
	out := make([]*ArtistObject, len(ids))
	for i, id := range ids {
		if id == "unknown" {
			continue
		}
		out[i] = &ArtistObject{ID: id, Popularity: 50, Genres: []string{"pop"}}
	}
	return out, nil
}

type mockCache struct {
	data map[string][]byte
	err  error
}

func (m *mockCache) GetCache(key string) ([]byte, error) {
	return m.data[key], m.err
}

func (m *mockCache) SetCache(key string, data []byte, ttl time.Duration) error {
	m.data[key] = data
	return m.err
}

func (m *mockCache) ClearCache() error {
	m.data = make(map[string][]byte)
	return m.err
}

func TestCachedSource_Artists(t *testing.T) {
	inner := &mockSource{}
	cache := &mockCache{data: make(map[string][]byte)}
	cs := NewCachedSource(inner, cache, time.Hour)
	ctx := context.Background()

	// 1. First call - everything is fetched
	got, err := cs.Artists(ctx, []string{"a", "unknown", "b"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Nil(t, got[1])
	assert.Equal(t, "b", got[2].ID)
	assert.Len(t, inner.artistCalls, 1)
	assert.Contains(t, cache.data, "artist:a")
	assert.NotContains(t, cache.data, "artist:unknown")

	// 2. Second call - only the miss goes to the source
	got, err = cs.Artists(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, inner.artistCalls[1])
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, []string{"pop"}, got[2].Genres)

	// 3. All cached - no call at all
	_, err = cs.Artists(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, inner.artistCalls, 2)

	// 4. Cleared cache - fetched again
	require.NoError(t, cs.ClearCache())
	_, err = cs.Artists(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Len(t, inner.artistCalls, 3)
}

func TestCachedSource_CacheError(t *testing.T) {
	cache := &mockCache{data: make(map[string][]byte), err: errors.New("db locked")}
	cs := NewCachedSource(&mockSource{}, cache, time.Hour)

	_, err := cs.Artists(context.Background(), []string{"a"})
	assert.EqualError(t, err, "db locked")
}

func TestCachedSource_WithClient(t *testing.T) {
	api := &fakeAPI{tracks: 4}
	cache := &mockCache{data: make(map[string][]byte)}
	e := NewExtractor(NewCachedSource(newTestClient(t, api), cache, time.Hour), nil)

	for i := 0; i < 2; i++ {
		tracks, _, err := e.ExtractPlaylist(context.Background(), "spotify:playlist:p", "p")
		require.NoError(t, err)
		assert.Len(t, tracks, 3)
	}
	assert.Equal(t, int32(1), api.artistCalls.Load())
	assert.Equal(t, int32(2), api.pageCalls.Load())
	assert.Contains(t, cache.data, "audio_features:t0")
}
