package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
)

const upsertTrack = `INSERT INTO tracks (
		uri, name, artist_name, artist_uri, artist_pop, artist_genres, album, track_pop,
		danceability, energy, key, loudness, mode, speechiness, acousticness,
		instrumentalness, liveness, valence, tempo, duration_ms, time_signature,
		playlist_name, created_at, updated_at
	) VALUES (
		:uri, :name, :artist_name, :artist_uri, :artist_pop, :artist_genres, :album, :track_pop,
		:danceability, :energy, :key, :loudness, :mode, :speechiness, :acousticness,
		:instrumentalness, :liveness, :valence, :tempo, :duration_ms, :time_signature,
		:playlist_name, :created_at, :updated_at
	)
	ON CONFLICT(uri) DO UPDATE SET
		name = excluded.name, artist_name = excluded.artist_name, artist_uri = excluded.artist_uri,
		artist_pop = excluded.artist_pop, artist_genres = excluded.artist_genres, album = excluded.album,
		track_pop = excluded.track_pop, danceability = excluded.danceability, energy = excluded.energy,
		key = excluded.key, loudness = excluded.loudness, mode = excluded.mode,
		speechiness = excluded.speechiness, acousticness = excluded.acousticness,
		instrumentalness = excluded.instrumentalness, liveness = excluded.liveness,
		valence = excluded.valence, tempo = excluded.tempo, duration_ms = excluded.duration_ms,
		time_signature = excluded.time_signature, playlist_name = excluded.playlist_name,
		updated_at = excluded.updated_at`

// TrackFilter narrows ListTracks. Zero values mean no restriction.
type TrackFilter struct {
	PlaylistName string
	ArtistURI    string
	Limit        uint64
	Offset       uint64
}

// SaveTracks upserts tracks into the corpus. A stored track is replaced by
// the incoming one; within the batch the first occurrence of a uri wins.
// It returns the number of distinct uris written.
func (db *DB) SaveTracks(tracks []domain.Track) (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareNamed(upsertTrack)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare track upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // deferred cleanup

	now := time.Now()
	seen := make(map[string]bool, len(tracks))
	for i := range tracks {
		track := tracks[i]
		track.Normalize()
		if track.URI == "" {
			return 0, fmt.Errorf("track %d has no uri", i)
		}
		if seen[track.URI] {
			continue
		}
		seen[track.URI] = true

		track.CreatedAt = now
		track.UpdatedAt = now
		if _, err := stmt.Exec(&track); err != nil {
			return 0, fmt.Errorf("failed to save track %s: %w", track.URI, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tracks: %w", err)
	}
	return len(seen), nil
}

func (db *DB) GetTrack(uri string) (*domain.Track, error) {
	var track domain.Track
	err := db.Get(&track, "SELECT * FROM tracks WHERE uri = ?", uri)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// ListTracks returns tracks in insertion order.
func (db *DB) ListTracks(filter TrackFilter) ([]domain.Track, error) {
	q := sq.Select("*").From(constants.TracksTable).OrderBy("rowid")
	if filter.PlaylistName != "" {
		q = q.Where(sq.Eq{"playlist_name": filter.PlaylistName})
	}
	if filter.ArtistURI != "" {
		q = q.Where(sq.Eq{"artist_uri": filter.ArtistURI})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit == 0 {
			q = q.Limit(math.MaxInt64)
		}
		q = q.Offset(filter.Offset)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build track query: %w", err)
	}

	var tracks []domain.Track
	if err := db.Select(&tracks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// ListTracksByPlaylist returns the tracks last saved under playlistName.
func (db *DB) ListTracksByPlaylist(playlistName string) ([]domain.Track, error) {
	return db.ListTracks(TrackFilter{PlaylistName: playlistName})
}

// GetTracksByURIs returns the stored tracks for uris in the order given.
// Unknown uris are skipped.
func (db *DB) GetTracksByURIs(uris []string) ([]domain.Track, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select("*").From(constants.TracksTable).Where(sq.Eq{"uri": uris}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build track query: %w", err)
	}

	var found []domain.Track
	if err := db.Select(&found, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}
	byURI := make(map[string]domain.Track, len(found))
	for _, t := range found {
		byURI[t.URI] = t
	}
	out := make([]domain.Track, 0, len(found))
	for _, uri := range uris {
		if t, ok := byURI[uri]; ok {
			out = append(out, t)
			delete(byURI, uri)
		}
	}
	return out, nil
}

func (db *DB) CountTracks() (int, error) {
	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM tracks"); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}
