package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/logger"
)

// URLToID returns the playlist id of a share link such as
// https://open.spotify.com/playlist/<id>?si=..., a spotify:playlist:<id>
// uri or a bare id.
func URLToID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if strings.HasPrefix(raw, "spotify:") {
		id := raw[strings.LastIndex(raw, ":")+1:]
		if id == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
		}
		return id, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	path := strings.TrimSuffix(u.Path, "/")
	id := path[strings.LastIndex(path, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return id, nil
}

// lastSegment strips a spotify:<kind>: prefix from a uri.
func lastSegment(uri string) string {
	return uri[strings.LastIndex(uri, ":")+1:]
}

// Extractor assembles corpus tracks from a Source.
type Extractor struct {
	src Source
	log *logger.Logger
	// PlaylistGap is the pause between playlists when harvesting featured
	// playlists.
	PlaylistGap time.Duration
}

func NewExtractor(src Source, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{
		src:         src,
		log:         log.WithComponent("extractor"),
		PlaylistGap: constants.FeaturedPlaylistGap,
	}
}

// ExtractPlaylist resolves url and returns the playlist's tracks with
// artist and audio data, tagged with name. It also returns the playlist id.
func (e *Extractor) ExtractPlaylist(ctx context.Context, rawURL, name string) ([]domain.Track, string, error) {
	id, err := URLToID(rawURL)
	if err != nil {
		return nil, "", err
	}
	tracks, err := e.ExtractTracks(ctx, id, name)
	if err != nil {
		return nil, id, err
	}
	if len(tracks) == 0 {
		return nil, id, fmt.Errorf("playlist %s: %w", id, ErrEmptyPlaylist)
	}
	return tracks, id, nil
}

// ExtractTracks pages through playlistID, then fills artist popularity and
// genres in batches of 50 and audio features in batches of 100. Removed,
// local and unanalysed tracks are skipped.
func (e *Extractor) ExtractTracks(ctx context.Context, playlistID, name string) ([]domain.Track, error) {
	log := e.log.With("playlist_id", playlistID, "playlist", name)

	var tracks []domain.Track
	for offset := 0; ; offset += constants.PlaylistPageSize {
		page, err := e.src.PlaylistTracks(ctx, playlistID, offset, constants.PlaylistPageSize)
		if err != nil {
			return nil, fmt.Errorf("playlist %s tracks at offset %d: %w", playlistID, offset, err)
		}
		for _, item := range page.Items {
			if t, ok := trackFromItem(item, name); ok {
				tracks = append(tracks, t)
			}
		}
		log.Debug("Fetched playlist page", "offset", offset, "items", len(page.Items), "total", page.Total)
		if len(page.Items) == 0 || offset+constants.PlaylistPageSize >= page.Total {
			break
		}
	}

	if err := e.fillArtists(ctx, tracks); err != nil {
		return nil, err
	}
	tracks, err := e.fillAudioFeatures(ctx, tracks)
	if err != nil {
		return nil, err
	}

	log.Info("Extracted playlist", "tracks", len(tracks))
	return tracks, nil
}

// ExtractFeatured harvests the featured playlists of every market. A
// playlist that fails is logged and skipped; a market whose listing fails
// aborts the harvest.
func (e *Extractor) ExtractFeatured(ctx context.Context, markets []string) ([]domain.Track, []PlaylistRef, error) {
	var (
		tracks    []domain.Track
		playlists []PlaylistRef
	)
	for _, market := range markets {
		refs, err := e.src.FeaturedPlaylists(ctx, market, constants.FeaturedPlaylists)
		if err != nil {
			return tracks, playlists, fmt.Errorf("featured playlists for %s: %w", market, err)
		}
		e.log.Info("Harvesting market", "market", market, "playlists", len(refs))

		for _, ref := range refs {
			id := ref.ID
			if id == "" {
				id = lastSegment(ref.URI)
			}
			got, err := e.ExtractTracks(ctx, id, ref.Name)
			if err != nil {
				if ctx.Err() != nil {
					return tracks, playlists, ctx.Err()
				}
				e.log.Warn("Skipping playlist", "playlist", ref.Name, "playlist_id", id, "error", err)
				continue
			}
			tracks = append(tracks, got...)
			playlists = append(playlists, ref)

			if err := sleep(ctx, e.PlaylistGap); err != nil {
				return tracks, playlists, err
			}
		}
	}
	return tracks, playlists, nil
}

func trackFromItem(item PlaylistItem, playlistName string) (domain.Track, bool) {
	t := item.Track
	if t == nil || t.IsLocal || len(t.Artists) == 0 {
		return domain.Track{}, false
	}
	id := t.ID
	if id == "" {
		id = lastSegment(t.URI)
	}
	if id == "" {
		return domain.Track{}, false
	}
	artist := t.Artists[0]
	artistID := artist.ID
	if artistID == "" {
		artistID = lastSegment(artist.URI)
	}
	return domain.Track{
		URI:          id,
		Name:         t.Name,
		ArtistName:   artist.Name,
		ArtistURI:    artistID,
		Album:        t.Album.Name,
		Popularity:   t.Popularity,
		PlaylistName: playlistName,
	}, true
}

func (e *Extractor) fillArtists(ctx context.Context, tracks []domain.Track) error {
	var ids []string
	seen := make(map[string]bool)
	for _, t := range tracks {
		if !seen[t.ArtistURI] {
			seen[t.ArtistURI] = true
			ids = append(ids, t.ArtistURI)
		}
	}

	artists := make(map[string]*ArtistObject, len(ids))
	for _, batch := range chunk(ids, constants.ArtistBatchSize) {
		got, err := e.src.Artists(ctx, batch)
		if err != nil {
			return fmt.Errorf("artists: %w", err)
		}
		for _, a := range got {
			if a != nil {
				artists[a.ID] = a
			}
		}
	}

	for i := range tracks {
		a, ok := artists[tracks[i].ArtistURI]
		if !ok {
			e.log.Warn("Artist not found", "artist_uri", tracks[i].ArtistURI, "track_uri", tracks[i].URI)
			continue
		}
		tracks[i].ArtistPopularity = a.Popularity
		tracks[i].ArtistGenres = domain.StringSlice(a.Genres)
	}
	return nil
}

func (e *Extractor) fillAudioFeatures(ctx context.Context, tracks []domain.Track) ([]domain.Track, error) {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.URI
	}

	analysed := make(map[string]*AudioFeatures, len(ids))
	for _, batch := range chunk(ids, constants.FeaturesBatchSize) {
		got, err := e.src.AudioFeatures(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("audio features: %w", err)
		}
		for _, f := range got {
			if f != nil {
				analysed[f.ID] = f
			}
		}
	}

	out := tracks[:0]
	for _, t := range tracks {
		f, ok := analysed[t.URI]
		if !ok {
			e.log.Warn("No audio features, skipping track", "track_uri", t.URI, "track_name", t.Name)
			continue
		}
		applyFeatures(&t, f)
		out = append(out, t)
	}
	return out, nil
}

func applyFeatures(t *domain.Track, f *AudioFeatures) {
	t.Danceability = f.Danceability
	t.Energy = f.Energy
	t.Key = f.Key
	t.Loudness = f.Loudness
	t.Mode = f.Mode
	t.Speechiness = f.Speechiness
	t.Acousticness = f.Acousticness
	t.Instrumentalness = f.Instrumentalness
	t.Liveness = f.Liveness
	t.Valence = f.Valence
	t.Tempo = f.Tempo
	t.DurationMs = f.DurationMs
	t.TimeSignature = f.TimeSignature
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
