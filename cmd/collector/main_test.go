package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cesargomez89/mias/internal/config"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/store"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		playlist string
		pos      []string
	}{
		{"flags first", []string{"-playlist", "gig", "out.csv"}, "gig", []string{"out.csv"}},
		{"flags after argument", []string{"out.csv", "-playlist", "gig"}, "gig", []string{"out.csv"}},
		{"interleaved", []string{"a", "-playlist=gig", "b"}, "gig", []string{"a", "b"}},
		{"no arguments", nil, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("export", flag.ContinueOnError)
			playlist := fs.String("playlist", "", "")

			pos, err := parseArgs(fs, tt.args)
			if err != nil {
				t.Fatalf("parseArgs failed: %v", err)
			}
			if *playlist != tt.playlist {
				t.Errorf("Expected playlist %q, got %q", tt.playlist, *playlist)
			}
			if strings.Join(pos, ",") != strings.Join(tt.pos, ",") {
				t.Errorf("Expected arguments %v, got %v", tt.pos, pos)
			}
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := parseArgs(fs, []string{"out.csv", "-nope"}); err == nil {
		t.Error("expected error for an unknown flag after an argument")
	}
}

func TestRun_ExportPlaylistFlagAfterPath(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mias.db")

	db, err := store.NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.SaveTracks([]domain.Track{
		{URI: "a1", Name: "kept", PlaylistName: "gig"},
		{URI: "b1", Name: "other", PlaylistName: "chill"},
	})
	db.Close()
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out.csv")
	args := []string{out, "-db", dbPath, "-playlist", "gig"}
	if err := run(context.Background(), &config.Config{}, logger.Discard(), "export", args); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "a1") || strings.Contains(string(data), "b1") {
		t.Errorf("Expected only the gig playlist in the export, got:\n%s", data)
	}
}

func TestSplitMarkets(t *testing.T) {
	got := splitMarkets(" au, gb,,us ")
	if strings.Join(got, ",") != "AU,GB,US" {
		t.Errorf("Expected AU,GB,US, got %v", got)
	}
}
