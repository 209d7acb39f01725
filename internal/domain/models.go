package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw record column names. They match the header of the exported tracks
// corpus so files written by earlier collectors stay importable.
const (
	ColURI              = "uris"
	ColName             = "names"
	ColArtistName       = "artist_names"
	ColArtistURI        = "artist_uris"
	ColArtistPop        = "artist_pop"
	ColArtistGenres     = "artist_genres"
	ColAlbum            = "albums"
	ColTrackPop         = "track_pop"
	ColDanceability     = "danceability"
	ColEnergy           = "energy"
	ColKey              = "keys"
	ColLoudness         = "loudness"
	ColMode             = "modes"
	ColSpeechiness      = "speechiness"
	ColAcousticness     = "acousticness"
	ColInstrumentalness = "instrumentalness"
	ColLiveness         = "liveness"
	ColValence          = "valences"
	ColTempo            = "tempos"
	ColDurationMs       = "durations_ms"
	ColTimeSignature    = "time_signatures"
	ColPlaylistName     = "playlist_name"
)

// RecordColumns is the column order used when a Track is rendered as a raw row.
var RecordColumns = []string{
	ColURI, ColName, ColArtistName, ColArtistURI, ColArtistPop, ColArtistGenres,
	ColAlbum, ColTrackPop, ColDanceability, ColEnergy, ColKey, ColLoudness,
	ColMode, ColSpeechiness, ColAcousticness, ColInstrumentalness, ColLiveness,
	ColValence, ColTempo, ColDurationMs, ColTimeSignature, ColPlaylistName,
}

// Track is one row of the track corpus: catalog metadata, popularity and
// audio analysis for a single track.
type Track struct { //nolint:govet // field ordering follows the corpus header
	URI              string      `json:"uri" db:"uri"`
	Name             string      `json:"name" db:"name"`
	ArtistName       string      `json:"artist_name" db:"artist_name"`
	ArtistURI        string      `json:"artist_uri" db:"artist_uri"`
	ArtistPopularity int         `json:"artist_pop" db:"artist_pop"`
	ArtistGenres     StringSlice `json:"artist_genres" db:"artist_genres"`
	Album            string      `json:"album" db:"album"`
	Popularity       int         `json:"track_pop" db:"track_pop"`
	Danceability     float64     `json:"danceability" db:"danceability"`
	Energy           float64     `json:"energy" db:"energy"`
	Key              int         `json:"key" db:"key"`
	Loudness         float64     `json:"loudness" db:"loudness"`
	Mode             int         `json:"mode" db:"mode"`
	Speechiness      float64     `json:"speechiness" db:"speechiness"`
	Acousticness     float64     `json:"acousticness" db:"acousticness"`
	Instrumentalness float64     `json:"instrumentalness" db:"instrumentalness"`
	Liveness         float64     `json:"liveness" db:"liveness"`
	Valence          float64     `json:"valence" db:"valence"`
	Tempo            float64     `json:"tempo" db:"tempo"`
	DurationMs       int         `json:"duration_ms" db:"duration_ms"`
	TimeSignature    int         `json:"time_signature" db:"time_signature"`
	PlaylistName     string      `json:"playlist_name,omitempty" db:"playlist_name"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// Normalize ensures the track data is consistent.
func (t *Track) Normalize() {
	t.URI = strings.TrimSpace(t.URI)
	for i, g := range t.ArtistGenres {
		t.ArtistGenres[i] = strings.ToLower(strings.TrimSpace(g))
	}
}

// Record renders the track as a raw row in RecordColumns order.
func (t *Track) Record() []string {
	return []string{
		t.URI,
		t.Name,
		t.ArtistName,
		t.ArtistURI,
		strconv.Itoa(t.ArtistPopularity),
		strings.Join(t.ArtistGenres, ", "),
		t.Album,
		strconv.Itoa(t.Popularity),
		formatFloat(t.Danceability),
		formatFloat(t.Energy),
		strconv.Itoa(t.Key),
		formatFloat(t.Loudness),
		strconv.Itoa(t.Mode),
		formatFloat(t.Speechiness),
		formatFloat(t.Acousticness),
		formatFloat(t.Instrumentalness),
		formatFloat(t.Liveness),
		formatFloat(t.Valence),
		formatFloat(t.Tempo),
		strconv.Itoa(t.DurationMs),
		strconv.Itoa(t.TimeSignature),
		t.PlaylistName,
	}
}

// ParseTrack builds a Track from a raw row. get returns the cell for a
// column name, or "" when the column is absent.
func ParseTrack(get func(col string) string) (Track, error) {
	t := Track{
		URI:          get(ColURI),
		Name:         get(ColName),
		ArtistName:   get(ColArtistName),
		ArtistURI:    get(ColArtistURI),
		ArtistGenres: ParseGenres(get(ColArtistGenres)),
		Album:        get(ColAlbum),
		PlaylistName: get(ColPlaylistName),
	}
	if t.URI == "" {
		return t, fmt.Errorf("missing %s", ColURI)
	}

	ints := []struct {
		col string
		dst *int
	}{
		{ColArtistPop, &t.ArtistPopularity},
		{ColTrackPop, &t.Popularity},
		{ColKey, &t.Key},
		{ColMode, &t.Mode},
		{ColDurationMs, &t.DurationMs},
		{ColTimeSignature, &t.TimeSignature},
	}
	for _, f := range ints {
		v, err := parseInt(get(f.col))
		if err != nil {
			return t, fmt.Errorf("track %s: %s: %w", t.URI, f.col, err)
		}
		*f.dst = v
	}

	floats := []struct {
		col string
		dst *float64
	}{
		{ColDanceability, &t.Danceability},
		{ColEnergy, &t.Energy},
		{ColLoudness, &t.Loudness},
		{ColSpeechiness, &t.Speechiness},
		{ColAcousticness, &t.Acousticness},
		{ColInstrumentalness, &t.Instrumentalness},
		{ColLiveness, &t.Liveness},
		{ColValence, &t.Valence},
		{ColTempo, &t.Tempo},
	}
	for _, f := range floats {
		raw := strings.TrimSpace(get(f.col))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return t, fmt.Errorf("track %s: %s: %w", t.URI, f.col, err)
		}
		*f.dst = v
	}

	return t, nil
}

// parseInt accepts integral floats ("5.0") because exported corpora
// promote integer columns to floats when a value is missing.
func parseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %s", raw)
	}
	return int(f), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type SubmissionStatus string

const (
	SubmissionStatusRunning   SubmissionStatus = "running"
	SubmissionStatusCompleted SubmissionStatus = "completed"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// Submission records one playlist submitted for recommendations.
type Submission struct {
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	Error          *string          `json:"error,omitempty" db:"error"`
	ID             string           `json:"id" db:"id"`
	PlaylistName   string           `json:"playlist_name" db:"playlist_name"`
	PlaylistURL    string           `json:"playlist_url" db:"playlist_url"`
	PlaylistID     string           `json:"playlist_id" db:"playlist_id"`
	Status         SubmissionStatus `json:"status" db:"status"`
	Weights        StringSlice      `json:"weights,omitempty" db:"weights"`
	TrackCount     int              `json:"track_count" db:"track_count"`
	CandidateCount int              `json:"candidate_count" db:"candidate_count"`
}

// Recommendation is one ranked candidate joined with its display attributes.
type Recommendation struct {
	SubmissionID string  `json:"-" db:"submission_id"`
	URI          string  `json:"uri" db:"uri"`
	Name         string  `json:"name" db:"name"`
	Artist       string  `json:"artist,omitempty" db:"artist"`
	Album        string  `json:"album,omitempty" db:"album"`
	Rank         int     `json:"rank" db:"rank"`
	Score        float64 `json:"score" db:"score"`
}

// EmbedURL returns the player embed link for the recommended track.
func (r Recommendation) EmbedURL() string {
	id := r.URI
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return "https://open.spotify.com/embed/track/" + id
}

// GrowthEntry is one sample of the corpus size, taken after every submission.
type GrowthEntry struct {
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Date       string    `json:"date" db:"date"`
	Time       string    `json:"time" db:"time"`
	ID         int       `json:"id" db:"id"`
	TrackCount int       `json:"track_count" db:"track_count"`
}
