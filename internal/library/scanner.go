// Package library imports tracks from a local music collection whose files
// were tagged with Spotify metadata by the beets spotify plugin.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/logger"
)

// Stats summarises one scan.
type Stats struct {
	Files   int
	Tracks  int
	Skipped int
	Failed  int
}

type Scanner struct {
	log *logger.Logger
}

func NewScanner(log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Discard()
	}
	return &Scanner{log: log.WithComponent("library")}
}

// Scan walks root and returns one track per tagged audio file, in walk
// order. Untagged files are skipped and unreadable files are logged and
// counted; neither aborts the scan. A track id seen twice keeps the first
// file.
func (s *Scanner) Scan(ctx context.Context, root string) ([]domain.Track, Stats, error) {
	var (
		tracks []domain.Track
		seen   = make(map[string]bool)
	)

	stats, err := s.walk(ctx, root, func(path string, track domain.Track, ok bool) (bool, error) {
		if !ok || seen[track.URI] {
			s.log.Debug("Skipping file", "path", path, "reason", skipReason(ok))
			return false, nil
		}
		seen[track.URI] = true
		tracks = append(tracks, track)
		return true, nil
	})
	if err != nil {
		return nil, stats, err
	}

	s.log.Info("Library scanned", "root", root, "files", stats.Files, "tracks", stats.Tracks,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return tracks, stats, nil
}

// Lookup returns the stored record for a track id, or nil when there is none.
type Lookup func(uri string) (*domain.Track, error)

// Retag rewrites the Spotify tags of every tagged file under root whose
// track id lookup knows. Files lookup cannot resolve are skipped. Tracks
// counts rewritten files.
func (s *Scanner) Retag(ctx context.Context, root string, lookup Lookup) (Stats, error) {
	stats, err := s.walk(ctx, root, func(path string, track domain.Track, ok bool) (bool, error) {
		if !ok {
			return false, nil
		}
		stored, err := lookup(track.URI)
		if err != nil {
			return false, err
		}
		if stored == nil {
			s.log.Debug("Track not in corpus", "path", path, "uri", track.URI)
			return false, nil
		}
		if err := WriteFile(path, *stored); err != nil {
			return false, err
		}
		s.log.WithTrack(stored.URI, stored.Name).Debug("Tags rewritten", "path", path)
		return true, nil
	})
	if err != nil {
		return stats, err
	}

	s.log.Info("Library retagged", "root", root, "files", stats.Files, "retagged", stats.Tracks,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// walk reads every supported file under root and hands its track to visit.
// visit reports whether the file counts as a track; a visit error counts the
// file as failed without stopping the walk.
func (s *Scanner) walk(ctx context.Context, root string, visit func(path string, track domain.Track, ok bool) (bool, error)) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		read := readerFor(path)
		if read == nil {
			return nil
		}
		stats.Files++

		track, ok, err := readFile(path, read)
		if err != nil {
			stats.Failed++
			s.log.Warn("Failed to read tags", "path", path, "error", err)
			return nil
		}

		counted, err := visit(path, track, ok)
		switch {
		case err != nil:
			stats.Failed++
			s.log.Warn("Failed to process file", "path", path, "error", err)
		case counted:
			stats.Tracks++
		default:
			stats.Skipped++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("scan %s: %w", root, err)
	}
	return stats, nil
}

type tagReader func(path string) (tags, error)

func readerFor(path string) tagReader {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3:
		return readMP3Tags
	case constants.ExtFLAC:
		return readFLACTags
	}
	return nil
}

// ReadFile reads the tags of a single MP3 or FLAC file. ok is false when
// the file has no spotify track id.
func ReadFile(path string) (track domain.Track, ok bool, err error) {
	read := readerFor(path)
	if read == nil {
		return domain.Track{}, false, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	return readFile(path, read)
}

func readFile(path string, read tagReader) (domain.Track, bool, error) {
	t, err := read(path)
	if err != nil {
		return domain.Track{}, false, err
	}
	return toTrack(t)
}

func skipReason(tagged bool) string {
	if tagged {
		return "duplicate track id"
	}
	return "no spotify track id"
}
