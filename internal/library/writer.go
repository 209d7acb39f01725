package library

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
)

type tagValue struct {
	key   string
	value string
}

// spotifyTags renders the Spotify fields of a track in a fixed order.
func spotifyTags(t domain.Track) []tagValue {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []tagValue{
		{TagTrackID, t.URI},
		{TagArtistID, t.ArtistURI},
		{TagTrackPopularity, strconv.Itoa(t.Popularity)},
		{TagArtistPopularity, strconv.Itoa(t.ArtistPopularity)},
		{TagAcousticness, f(t.Acousticness)},
		{TagDanceability, f(t.Danceability)},
		{TagEnergy, f(t.Energy)},
		{TagInstrumentalness, f(t.Instrumentalness)},
		{TagKey, strconv.Itoa(t.Key)},
		{TagLiveness, f(t.Liveness)},
		{TagLoudness, f(t.Loudness)},
		{TagMode, strconv.Itoa(t.Mode)},
		{TagSpeechiness, f(t.Speechiness)},
		{TagTempo, f(t.Tempo)},
		{TagTimeSignature, strconv.Itoa(t.TimeSignature)},
		{TagValence, f(t.Valence)},
		{TagDurationMs, strconv.Itoa(t.DurationMs)},
	}
}

func isSpotifyTag(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), "spotify_")
}

// WriteFile replaces the Spotify tags of an MP3 or FLAC file with the
// values of t. Other tags are left untouched.
func WriteFile(path string, t domain.Track) error {
	if t.URI == "" {
		return fmt.Errorf("write tags %s: track has no uri", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3:
		return writeMP3Tags(path, t)
	case constants.ExtFLAC:
		return writeFLACTags(path, t)
	}
	return fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

func writeMP3Tags(path string, t domain.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	txxx := tag.CommonID("User defined text information frame")
	var kept []id3v2.UserDefinedTextFrame
	for _, f := range tag.GetFrames(txxx) {
		udtf, ok := f.(id3v2.UserDefinedTextFrame)
		if !ok || isSpotifyTag(udtf.Description) {
			continue
		}
		kept = append(kept, udtf)
	}
	tag.DeleteFrames(txxx)

	for _, f := range kept {
		tag.AddUserDefinedTextFrame(f)
	}
	for _, v := range spotifyTags(t) {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: v.key,
			Value:       v.value,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

func writeFLACTags(path string, t domain.Track) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	idx := -1
	cmts := flacvorbis.New()
	for i, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		existing, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return fmt.Errorf("parse vorbis comment: %w", err)
		}
		idx = i
		cmts.Vendor = existing.Vendor
		for _, c := range existing.Comments {
			name, _, _ := strings.Cut(c, "=")
			if !isSpotifyTag(name) {
				cmts.Comments = append(cmts.Comments, c)
			}
		}
		break
	}

	for _, v := range spotifyTags(t) {
		if err := cmts.Add(strings.ToUpper(v.key), v.value); err != nil {
			return fmt.Errorf("add %s: %w", v.key, err)
		}
	}

	block := cmts.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}
