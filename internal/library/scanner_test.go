package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

func writeMP3(t *testing.T, path string, fields map[string]string) {
	t.Helper()
	frame := append([]byte{0xff, 0xfb, 0x90, 0x00}, make([]byte, 412)...)
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		t.Fatalf("write mp3: %v", err)
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open mp3: %v", err)
	}
	defer tag.Close()

	for name, value := range fields {
		switch name {
		case "title":
			tag.SetTitle(value)
		case "artist":
			tag.SetArtist(value)
		case "album":
			tag.SetAlbum(value)
		case "genre":
			tag.SetGenre(value)
		default:
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: name,
				Value:       value,
			})
		}
	}
	if err := tag.Save(); err != nil {
		t.Fatalf("save mp3 tag: %v", err)
	}
}

func writeFLAC(t *testing.T, path string, comments map[string]string) {
	t.Helper()
	cmt := flacvorbis.New()
	for name, value := range comments {
		if err := cmt.Add(name, value); err != nil {
			t.Fatalf("add comment: %v", err)
		}
	}
	block := cmt.Marshal()

	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: make([]byte, 34)},
			&block,
		},
		Frames: flac.FrameData{0xff, 0xf8},
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("save flac: %v", err)
	}
}

func TestReadFile_MP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	writeMP3(t, path, map[string]string{
		"title":             "Midnight City",
		"artist":            "M83",
		"album":             "Hurry Up, We're Dreaming",
		"genre":             "Synthpop; Indietronica",
		TagTrackID:          "spotify:track:1eyzqe2QqGZUmfcPZtrIyt",
		TagArtistID:         "63MQldklfxkjYDoUE4Tppz",
		TagTrackPopularity:  "78",
		TagDanceability:     "0.507",
		TagEnergy:           "0.729",
		TagKey:              "11",
		TagMode:             "0",
		TagTempo:            "105.005",
		TagTimeSignature:    "4",
		TagLoudness:         "-5.399",
		TagInstrumentalness: "0.0146",
	})

	track, ok, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a tagged track")
	}

	if track.URI != "1eyzqe2QqGZUmfcPZtrIyt" {
		t.Errorf("URI = %q", track.URI)
	}
	if track.ArtistURI != "63MQldklfxkjYDoUE4Tppz" {
		t.Errorf("ArtistURI = %q", track.ArtistURI)
	}
	if track.Name != "Midnight City" || track.ArtistName != "M83" {
		t.Errorf("unexpected name/artist: %q / %q", track.Name, track.ArtistName)
	}
	if !slices.Equal([]string(track.ArtistGenres), []string{"synthpop", "indietronica"}) {
		t.Errorf("ArtistGenres = %v", track.ArtistGenres)
	}
	if track.Popularity != 78 || track.Key != 11 || track.Mode != 0 || track.TimeSignature != 4 {
		t.Errorf("unexpected integer fields: %+v", track)
	}
	if track.Danceability != 0.507 || track.Tempo != 105.005 || track.Loudness != -5.399 {
		t.Errorf("unexpected float fields: %+v", track)
	}
}

func TestReadFile_FLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	writeFLAC(t, path, map[string]string{
		"TITLE":                    "Teardrop",
		"ARTIST":                   "Massive Attack",
		"GENRE":                    "Trip Hop",
		"SPOTIFY_TRACK_ID":         "67Hna13dNDkZvBpTXRIaOJ",
		"SPOTIFY_VALENCE":          "0.0681",
		"SPOTIFY_ACOUSTICNESS":     "0.0169",
		"SPOTIFY_DURATION_MS":      "330773",
		"SPOTIFY_TIME_SIGNATURE":   "4",
		"spotify_track_popularity": "71",
	})

	track, ok, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a tagged track")
	}
	if track.URI != "67Hna13dNDkZvBpTXRIaOJ" || track.Name != "Teardrop" {
		t.Errorf("unexpected track: %+v", track)
	}
	if track.Valence != 0.0681 || track.Acousticness != 0.0169 {
		t.Errorf("unexpected float fields: %+v", track)
	}
	if track.DurationMs != 330773 || track.Popularity != 71 || track.TimeSignature != 4 {
		t.Errorf("unexpected integer fields: %+v", track)
	}
	if !slices.Equal([]string(track.ArtistGenres), []string{"trip hop"}) {
		t.Errorf("ArtistGenres = %v", track.ArtistGenres)
	}
}

func TestReadFile_Untagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.flac")
	writeFLAC(t, path, map[string]string{"TITLE": "No Spotify"})

	_, ok, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if ok {
		t.Error("expected file without track id to be skipped")
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := ReadFile(filepath.Join(dir, "cover.jpg")); err == nil {
		t.Error("expected error for unsupported extension")
	}

	bad := filepath.Join(dir, "bad.mp3")
	writeMP3(t, bad, map[string]string{TagTrackID: "abc", TagTempo: "fast"})
	if _, _, err := ReadFile(bad); err == nil {
		t.Error("expected error for non numeric tempo")
	}

	if _, _, err := ReadFile(filepath.Join(dir, "missing.flac")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error for missing flac, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.flac")
	if err := os.WriteFile(garbage, []byte("not a flac stream"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadFile(garbage); err == nil {
		t.Error("expected error for a file without the fLaC marker")
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "Artist", "Album")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	writeMP3(t, filepath.Join(root, "a.mp3"), map[string]string{TagTrackID: "aaa", "title": "A"})
	writeFLAC(t, filepath.Join(sub, "b.flac"), map[string]string{"SPOTIFY_TRACK_ID": "bbb", "TITLE": "B"})
	writeFLAC(t, filepath.Join(sub, "c.flac"), map[string]string{"TITLE": "untagged"})
	writeMP3(t, filepath.Join(root, "dup.mp3"), map[string]string{TagTrackID: "aaa", "title": "A again"})
	writeMP3(t, filepath.Join(sub, "broken.mp3"), map[string]string{TagTrackID: "ccc", TagKey: "C#"})
	if err := os.WriteFile(filepath.Join(sub, "cover.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}

	tracks, stats, err := NewScanner(nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var uris []string
	for _, tr := range tracks {
		uris = append(uris, tr.URI)
	}
	slices.Sort(uris)
	if !slices.Equal(uris, []string{"aaa", "bbb"}) {
		t.Errorf("uris = %v", uris)
	}
	for _, tr := range tracks {
		if tr.URI == "aaa" && tr.Name != "A" {
			t.Errorf("duplicate id should keep the first file, got %q", tr.Name)
		}
	}

	want := Stats{Files: 5, Tracks: 2, Skipped: 2, Failed: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestScanner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeMP3(t, filepath.Join(root, "a.mp3"), map[string]string{TagTrackID: "aaa"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewScanner(nil).Scan(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScanner_MissingRoot(t *testing.T) {
	_, _, err := NewScanner(nil).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestSplitGenres(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Rock", []string{"Rock"}},
		{"Rock; Pop", []string{"Rock", "Pop"}},
		{"Rock/Pop", []string{"Rock", "Pop"}},
		{"Rock\x00Pop", []string{"Rock", "Pop"}},
		{"dance pop, pop", []string{"dance pop", "pop"}},
	}
	for _, tt := range tests {
		got := splitGenres(tt.in)
		if !slices.Equal([]string(got), tt.want) {
			t.Errorf("splitGenres(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
