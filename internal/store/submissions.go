package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
)

// CreateSubmission stores a submission together with the ordered uris of
// its playlist.
func (db *DB) CreateSubmission(sub *domain.Submission, trackURIs []string) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.NamedExec(`INSERT INTO submissions (
		id, playlist_name, playlist_url, playlist_id, status, weights,
		track_count, candidate_count, error, created_at
	) VALUES (
		:id, :playlist_name, :playlist_url, :playlist_id, :status, :weights,
		:track_count, :candidate_count, :error, :created_at
	)`, sub)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	for i, uri := range trackURIs {
		if _, err := tx.Exec(
			"INSERT INTO submission_tracks (submission_id, position, uri) VALUES (?, ?, ?)",
			sub.ID, i, uri,
		); err != nil {
			return fmt.Errorf("failed to store submission track %s: %w", uri, err)
		}
	}

	return tx.Commit()
}

// CompleteSubmission marks a submission completed and stores its ranked
// recommendations.
func (db *DB) CompleteSubmission(id string, candidateCount int, recs []domain.Recommendation) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.Exec(
		"UPDATE submissions SET status = ?, candidate_count = ?, error = NULL WHERE id = ?",
		domain.SubmissionStatusCompleted, candidateCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete submission: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	if _, err := tx.Exec("DELETE FROM recommendations WHERE submission_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear recommendations: %w", err)
	}
	for i := range recs {
		rec := recs[i]
		rec.SubmissionID = id
		if _, err := tx.NamedExec(`INSERT INTO recommendations (
			submission_id, rank, uri, name, artist, album, score
		) VALUES (
			:submission_id, :rank, :uri, :name, :artist, :album, :score
		)`, &rec); err != nil {
			return fmt.Errorf("failed to store recommendation %s: %w", rec.URI, err)
		}
	}

	return tx.Commit()
}

func (db *DB) FailSubmission(id string, cause error) error {
	msg := cause.Error()
	res, err := db.Exec(
		"UPDATE submissions SET status = ?, error = ? WHERE id = ?",
		domain.SubmissionStatusFailed, msg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark submission failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) GetSubmission(id string) (*domain.Submission, error) {
	var sub domain.Submission
	err := db.Get(&sub, "SELECT * FROM submissions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns the most recent submissions first, optionally
// restricted to one status.
func (db *DB) ListSubmissions(status domain.SubmissionStatus, limit uint64) ([]domain.Submission, error) {
	q := sq.Select("*").From(constants.SubmissionsTable).OrderBy("created_at DESC", "rowid DESC")
	if status != "" {
		q = q.Where(sq.Eq{"status": status})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build submission query: %w", err)
	}

	var subs []domain.Submission
	if err := db.Select(&subs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// SubmissionTracks returns the playlist uris of a submission in playlist order.
func (db *DB) SubmissionTracks(id string) ([]string, error) {
	var uris []string
	err := db.Select(&uris,
		"SELECT uri FROM submission_tracks WHERE submission_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission tracks: %w", err)
	}
	return uris, nil
}

// ListRecommendations returns the stored ranking of a submission, best first.
func (db *DB) ListRecommendations(id string) ([]domain.Recommendation, error) {
	var recs []domain.Recommendation
	err := db.Select(&recs,
		"SELECT * FROM recommendations WHERE submission_id = ? ORDER BY rank", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}
