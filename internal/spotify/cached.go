package spotify

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/mias/internal/metrics"
)

type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	ClearCache() error
}

// CachedSource caches artist and audio feature lookups per id. Playlist
// listings always go to the wrapped source since playlists change.
type CachedSource struct {
	source   Source
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedSource(source Source, cache Cache, cacheTTL time.Duration) *CachedSource {
	return &CachedSource{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

var _ Source = (*CachedSource)(nil)

func (c *CachedSource) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (*PlaylistTracksPage, error) {
	return c.source.PlaylistTracks(ctx, playlistID, offset, limit)
}

func (c *CachedSource) FeaturedPlaylists(ctx context.Context, country string, limit int) ([]PlaylistRef, error) {
	return c.source.FeaturedPlaylists(ctx, country, limit)
}

func (c *CachedSource) Artists(ctx context.Context, ids []string) ([]*ArtistObject, error) {
	return cachedBatch(ctx, c, "artist", ids,
		func(a *ArtistObject) string { return a.ID },
		c.source.Artists,
	)
}

func (c *CachedSource) AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error) {
	return cachedBatch(ctx, c, "audio_features", ids,
		func(f *AudioFeatures) string { return f.ID },
		c.source.AudioFeatures,
	)
}

func (c *CachedSource) ClearCache() error {
	return c.cache.ClearCache()
}

// cachedBatch answers ids from the cache where possible and fetches the
// rest in one call. The result is aligned with ids; unknown ids are nil
// and are not cached.
func cachedBatch[T any](
	ctx context.Context,
	c *CachedSource,
	kind string,
	ids []string,
	idOf func(*T) string,
	fetch func(context.Context, []string) ([]*T, error),
) ([]*T, error) {
	found := make(map[string]*T, len(ids))
	var misses []string
	for _, id := range ids {
		data, err := c.cache.GetCache(fmt.Sprintf("%s:%s", kind, id))
		if err != nil {
			return nil, err
		}
		if data != nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				found[id] = &v
				metrics.RecordCacheLookup(kind, true)
				continue
			}
		}
		metrics.RecordCacheLookup(kind, false)
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		fetched, err := fetch(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, v := range fetched {
			if v == nil {
				continue
			}
			id := idOf(v)
			found[id] = v
			if data, err := json.Marshal(v); err == nil {
				_ = c.cache.SetCache(fmt.Sprintf("%s:%s", kind, id), data, c.cacheTTL)
			}
		}
	}

	out := make([]*T, len(ids))
	for i, id := range ids {
		out[i] = found[id]
	}
	return out, nil
}
