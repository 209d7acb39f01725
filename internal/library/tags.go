package library

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/mias/internal/domain"
)

// Tag keys written by the beets spotify plugin. Matching is case-insensitive
// since Vorbis comment names are conventionally upper case.
const (
	TagTrackID          = "spotify_track_id"
	TagArtistID         = "spotify_artist_id"
	TagTrackPopularity  = "spotify_track_popularity"
	TagArtistPopularity = "spotify_artist_popularity"
	TagAcousticness     = "spotify_acousticness"
	TagDanceability     = "spotify_danceability"
	TagEnergy           = "spotify_energy"
	TagInstrumentalness = "spotify_instrumentalness"
	TagKey              = "spotify_key"
	TagLiveness         = "spotify_liveness"
	TagLoudness         = "spotify_loudness"
	TagMode             = "spotify_mode"
	TagSpeechiness      = "spotify_speechiness"
	TagTempo            = "spotify_tempo"
	TagTimeSignature    = "spotify_time_signature"
	TagValence          = "spotify_valence"
	TagDurationMs       = "spotify_duration_ms"
)

// tags is a flat, lower-cased view over whatever tag format a file uses.
type tags map[string]string

func (t tags) get(key string) string {
	return strings.TrimSpace(t[strings.ToLower(key)])
}

func (t tags) set(key, value string) {
	key = strings.ToLower(key)
	if _, ok := t[key]; ok {
		return
	}
	t[key] = value
}

// readMP3Tags collects the common text frames and every TXXX frame.
func readMP3Tags(path string) (tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	out := tags{
		"title":  tag.Title(),
		"artist": tag.Artist(),
		"album":  tag.Album(),
		"genre":  tag.Genre(),
	}
	for _, f := range tag.GetFrames(tag.CommonID("User defined text information frame")) {
		udtf, ok := f.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		out.set(udtf.Description, udtf.Value)
	}
	return out, nil
}

// readFLACTags collects the Vorbis comments of a FLAC file. Only the
// metadata blocks are read.
func readFLACTags(path string) (tags, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := flac.ParseMetadata(file)
	if err != nil {
		return nil, fmt.Errorf("parse flac: %w", err)
	}

	out := tags{}
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return nil, fmt.Errorf("parse vorbis comment: %w", err)
		}
		for _, c := range cmt.Comments {
			name, value, ok := strings.Cut(c, "=")
			if !ok {
				continue
			}
			out.set(name, value)
		}
	}
	return out, nil
}

// toTrack maps the collected tags onto a corpus record. ok is false when
// the file carries no spotify track id.
func toTrack(t tags) (domain.Track, bool, error) {
	id := lastSegment(t.get(TagTrackID))
	if id == "" {
		return domain.Track{}, false, nil
	}

	track := domain.Track{
		URI:          id,
		Name:         t.get("title"),
		ArtistName:   t.get("artist"),
		ArtistURI:    lastSegment(t.get(TagArtistID)),
		Album:        t.get("album"),
		ArtistGenres: splitGenres(t.get("genre")),
	}

	ints := []struct {
		key string
		dst *int
	}{
		{TagTrackPopularity, &track.Popularity},
		{TagArtistPopularity, &track.ArtistPopularity},
		{TagKey, &track.Key},
		{TagMode, &track.Mode},
		{TagTimeSignature, &track.TimeSignature},
		{TagDurationMs, &track.DurationMs},
	}
	for _, f := range ints {
		raw := t.get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return track, false, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = int(v)
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{TagAcousticness, &track.Acousticness},
		{TagDanceability, &track.Danceability},
		{TagEnergy, &track.Energy},
		{TagInstrumentalness, &track.Instrumentalness},
		{TagLiveness, &track.Liveness},
		{TagLoudness, &track.Loudness},
		{TagSpeechiness, &track.Speechiness},
		{TagTempo, &track.Tempo},
		{TagValence, &track.Valence},
	}
	for _, f := range floats {
		raw := t.get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return track, false, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}

	track.Normalize()
	return track, true, nil
}

// splitGenres accepts the separators taggers commonly use for multi-valued
// genre fields.
func splitGenres(raw string) domain.StringSlice {
	raw = strings.NewReplacer(";", ",", "/", ",", "\x00", ",").Replace(raw)
	return domain.ParseGenres(raw)
}

func lastSegment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, ":/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
