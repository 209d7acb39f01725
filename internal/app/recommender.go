package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
	"github.com/cesargomez89/mias/internal/features"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/metrics"
	"github.com/cesargomez89/mias/internal/similarity"
	"github.com/cesargomez89/mias/internal/store"
)

var ErrInvalidRequest = errors.New("invalid request")

// PlaylistExtractor fetches a playlist as corpus records.
type PlaylistExtractor interface {
	ExtractPlaylist(ctx context.Context, rawURL, name string) ([]domain.Track, string, error)
}

type Request struct {
	PlaylistURL string
	Name        string
	Weights     []string
	TopN        int
}

func (r *Request) normalize(defaultTopN int) error {
	r.PlaylistURL = strings.TrimSpace(r.PlaylistURL)
	r.Name = strings.TrimSpace(r.Name)
	if r.PlaylistURL == "" {
		return fmt.Errorf("%w: playlist url is required", ErrInvalidRequest)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: playlist name is required", ErrInvalidRequest)
	}
	if r.TopN == 0 {
		r.TopN = defaultTopN
	}
	if r.TopN < 1 || r.TopN > constants.MaxTopN {
		return fmt.Errorf("%w: top n must be between 1 and %d, got %d", ErrInvalidRequest, constants.MaxTopN, r.TopN)
	}
	if len(r.Weights) > constants.MaxWeightedFeatures {
		return fmt.Errorf("%w: at most %d weighted features", ErrInvalidRequest, constants.MaxWeightedFeatures)
	}
	return nil
}

// Result is one completed submission with its ranking and the distribution
// of every candidate score.
type Result struct {
	Submission      *domain.Submission      `json:"submission"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Histogram       []HistogramBin          `json:"histogram"`
}

type Recommender struct {
	Repo      *store.DB
	Extractor PlaylistExtractor
	Logger    *logger.Logger
	TopN      int

	engineOpts []similarity.Option
	now        func() time.Time
}

func NewRecommender(repo *store.DB, extractor PlaylistExtractor, log *logger.Logger, opts ...similarity.Option) *Recommender {
	if log == nil {
		log = logger.Discard()
	}
	return &Recommender{
		Repo:       repo,
		Extractor:  extractor,
		Logger:     log.WithComponent("recommender"),
		TopN:       constants.DefaultTopN,
		engineOpts: opts,
		now:        time.Now,
	}
}

// Recommend extracts the playlist, folds it into the corpus and ranks every
// other corpus track against it. The submission is persisted whether the
// ranking succeeds or not.
func (s *Recommender) Recommend(ctx context.Context, req Request) (res *Result, err error) {
	defer func() { metrics.RecordRecommendation(err) }()

	if err := req.normalize(s.TopN); err != nil {
		return nil, err
	}

	tracks, playlistID, err := s.Extractor.ExtractPlaylist(ctx, req.PlaylistURL, req.Name)
	if err != nil {
		return nil, fmt.Errorf("extract playlist: %w", err)
	}

	saved, err := s.Repo.SaveTracks(tracks)
	if err != nil {
		return nil, fmt.Errorf("save playlist tracks: %w", err)
	}

	sub := &domain.Submission{
		ID:           uuid.New().String(),
		PlaylistName: req.Name,
		PlaylistURL:  req.PlaylistURL,
		PlaylistID:   playlistID,
		Status:       domain.SubmissionStatusRunning,
		Weights:      req.Weights,
		TrackCount:   len(tracks),
		CreatedAt:    s.now(),
	}
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	if err := s.Repo.CreateSubmission(sub, uris); err != nil {
		return nil, err
	}

	log := s.Logger.WithSubmission(sub.ID, sub.PlaylistName)
	log.Info("Playlist extracted", "playlist_id", playlistID, "tracks", len(tracks), "saved", saved)

	res, err = s.rank(ctx, sub, tracks, req, log)
	if err != nil {
		if ferr := s.Repo.FailSubmission(sub.ID, err); ferr != nil {
			log.Error("Failed to mark submission failed", "error", ferr)
		}
		log.Error("Recommendation failed", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *Recommender) rank(ctx context.Context, sub *domain.Submission, tracks []domain.Track, req Request, log *logger.Logger) (*Result, error) {
	corpus, err := s.Repo.ListTracks(store.TrackFilter{})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	metrics.CorpusTracks.Set(float64(len(corpus)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	playlist := features.TracksTable(tracks)
	merged, err := features.Merge(playlist, features.TracksTable(corpus))
	if err != nil {
		return nil, fmt.Errorf("merge corpus: %w", err)
	}

	start := time.Now()
	opts := append([]similarity.Option{similarity.WithLogger(log)}, s.engineOpts...)
	engine, err := similarity.NewCosine(playlist, merged, req.Weights, opts...)
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	start = time.Now()
	if err := engine.CalculateSimilarity(); err != nil {
		return nil, err
	}
	scores, err := engine.Scores()
	if err != nil {
		return nil, err
	}
	recs, err := engine.TopN(req.TopN)
	if err != nil {
		return nil, err
	}
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	if err := s.Repo.CompleteSubmission(sub.ID, len(scores), recs); err != nil {
		return nil, err
	}
	sub.Status = domain.SubmissionStatusCompleted
	sub.CandidateCount = len(scores)

	count, err := s.Repo.CountTracks()
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.RecordGrowth(count, s.now()); err != nil {
		log.Warn("Failed to record corpus growth", "error", err)
	}
	metrics.CorpusTracks.Set(float64(count))

	log.Info("Recommendations ready",
		"candidates", len(scores),
		"returned", len(recs),
		"features", engine.Features().Width(),
	)

	vals := make([]float64, 0, len(scores))
	for _, v := range scores {
		vals = append(vals, v)
	}
	return &Result{
		Submission:      sub,
		Recommendations: recs,
		Histogram:       Histogram(vals, constants.HistogramBins),
	}, nil
}

// History returns the most recent submissions, newest first.
func (s *Recommender) History(limit int) ([]domain.Submission, error) {
	if limit <= 0 || limit > constants.MaxHistoryItems {
		limit = constants.MaxHistoryItems
	}
	return s.Repo.ListSubmissions("", uint64(limit))
}

// Detail is a stored submission with its ranking and the playlist tracks
// it was built from.
type Detail struct {
	Submission      *domain.Submission
	Recommendations []domain.Recommendation
	Playlist        []domain.Track
}

// Submission returns a stored submission with its ranking and playlist.
// Playlist tracks no longer in the corpus are left out.
func (s *Recommender) Submission(id string) (*Detail, error) {
	sub, err := s.Repo.GetSubmission(id)
	if err != nil {
		return nil, err
	}
	recs, err := s.Repo.ListRecommendations(id)
	if err != nil {
		return nil, err
	}
	uris, err := s.Repo.SubmissionTracks(id)
	if err != nil {
		return nil, err
	}
	playlist, err := s.Repo.GetTracksByURIs(uris)
	if err != nil {
		return nil, err
	}
	return &Detail{Submission: sub, Recommendations: recs, Playlist: playlist}, nil
}

// Growth returns the corpus size log, oldest first.
func (s *Recommender) Growth() ([]domain.GrowthEntry, error) {
	return s.Repo.ListGrowth()
}

// CorpusSize returns the number of stored tracks.
func (s *Recommender) CorpusSize() (int, error) {
	return s.Repo.CountTracks()
}

// Tracks returns one page of the corpus in insertion order.
func (s *Recommender) Tracks(limit, offset int) ([]domain.Track, error) {
	return s.Repo.ListTracks(store.TrackFilter{Limit: uint64(limit), Offset: uint64(offset)})
}
