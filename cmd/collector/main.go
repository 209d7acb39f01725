// Command collector grows the track corpus outside the API. It harvests
// featured playlists, imports CSV exports and tagged local music libraries,
// and writes the corpus back out as CSV or file tags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cesargomez89/mias/internal/config"
	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/features"
	"github.com/cesargomez89/mias/internal/library"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/spotify"
	"github.com/cesargomez89/mias/internal/storage"
	"github.com/cesargomez89/mias/internal/store"
)

const usage = `usage: collector <command> [flags] [args]

commands:
  featured [-markets AU,GB] [-refresh]
                              harvest the featured playlists of each market
  csv <file>                  import a corpus CSV export
  library <dir>               import MP3/FLAC files tagged with Spotify data
  retag <dir>                 rewrite the Spotify tags of local files from the corpus
  export [-playlist name] [file]
                              write the stored corpus, or one playlist, as CSV

flags may appear before or after the positional arguments.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).WithComponent("collector")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("Command failed", "command", os.Args[1], "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	markets := fs.String("markets", strings.Join(cfg.Spotify.Markets, ","), "comma separated market codes")
	dbPath := fs.String("db", cfg.DBPath, "sqlite database path")
	playlist := fs.String("playlist", "", "export only the tracks of this playlist")
	refresh := fs.Bool("refresh", false, "drop cached Spotify responses before harvesting")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	arg := ""
	if len(pos) > 0 {
		arg = pos[0]
	}

	db, err := store.NewSQLiteDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var tracks []domain.Track
	switch cmd {
	case "featured":
		tracks, err = harvestFeatured(ctx, cfg, db, log, splitMarkets(*markets), *refresh)
	case "csv":
		tracks, err = importCSV(arg)
	case "library":
		tracks, err = importLibrary(ctx, arg, log)
	case "retag":
		return retagLibrary(ctx, db, arg, log)
	case "export":
		return exportCSV(db, arg, *playlist, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil && len(tracks) == 0 {
		return err
	}
	if err != nil {
		log.Warn("Saving partial harvest", "tracks", len(tracks), "error", err)
	}

	return save(db, tracks, log)
}

// save stores tracks and appends a growth sample.
func save(db *store.DB, tracks []domain.Track, log *logger.Logger) error {
	saved, err := db.SaveTracks(tracks)
	if err != nil {
		return fmt.Errorf("save tracks: %w", err)
	}
	count, err := db.CountTracks()
	if err != nil {
		return err
	}
	if _, err := db.RecordGrowth(count, time.Now()); err != nil {
		return err
	}
	log.Info("Corpus updated", "received", len(tracks), "saved", saved, "corpus", count)
	return nil
}

// parseArgs parses fs over args, letting flags follow positional
// arguments, and returns the positional arguments in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func harvestFeatured(ctx context.Context, cfg *config.Config, db *store.DB, log *logger.Logger, markets []string, refresh bool) ([]domain.Track, error) {
	if len(markets) == 0 {
		return nil, errors.New("no markets given")
	}
	client, err := spotify.NewClient(spotify.Config{
		ClientID:        cfg.Spotify.ClientID,
		ClientSecret:    cfg.Spotify.ClientSecret,
		APIURL:          cfg.Spotify.APIURL,
		AuthURL:         cfg.Spotify.AuthURL,
		RequestInterval: cfg.Spotify.RequestInterval,
	}, log)
	if err != nil {
		return nil, err
	}
	client.SetRetry(cfg.Spotify.RetryCount, constants.DefaultRetryBase)

	source := spotify.NewCachedSource(client, db, cfg.CacheTTL)
	if refresh {
		if err := source.ClearCache(); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
		log.Info("Spotify cache cleared")
	}

	ex := spotify.NewExtractor(source, log)
	tracks, playlists, err := ex.ExtractFeatured(ctx, markets)
	log.Info("Featured harvest finished", "markets", len(markets), "playlists", len(playlists), "tracks", len(tracks))
	return tracks, err
}

func importCSV(path string) ([]domain.Track, error) {
	if path == "" {
		return nil, errors.New("csv: file argument required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := features.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return raw.Tracks()
}

func importLibrary(ctx context.Context, dir string, log *logger.Logger) ([]domain.Track, error) {
	if dir == "" {
		return nil, errors.New("library: directory argument required")
	}
	tracks, _, err := library.NewScanner(log).Scan(ctx, dir)
	return tracks, err
}

func retagLibrary(ctx context.Context, db *store.DB, dir string, log *logger.Logger) error {
	if dir == "" {
		return errors.New("retag: directory argument required")
	}
	lookup := func(uri string) (*domain.Track, error) {
		t, err := db.GetTrack(uri)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return t, err
	}
	_, err := library.NewScanner(log).Retag(ctx, dir, lookup)
	return err
}

func exportCSV(db *store.DB, path, playlist string, log *logger.Logger) error {
	var (
		tracks []domain.Track
		err    error
	)
	if playlist != "" {
		tracks, err = db.ListTracksByPlaylist(playlist)
	} else {
		tracks, err = db.ListTracks(store.TrackFilter{})
	}
	if err != nil {
		return err
	}

	if path == "" {
		name := "tracks"
		if playlist != "" {
			name = storage.Sanitize(playlist)
		}
		path = name + constants.ExtCSV
	}
	err = storage.WriteFileAtomic(path, func(w io.Writer) error {
		return features.WriteCSV(w, features.TracksTable(tracks))
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}

	sum, err := storage.HashFile(path)
	if err != nil {
		return err
	}
	log.Info("Corpus exported", "path", path, "tracks", len(tracks), "sha256", sum)
	return nil
}

func splitMarkets(raw string) []string {
	var out []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}
