package store

import (
	"fmt"
	"time"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/domain"
)

// RecordGrowth appends a corpus size sample taken at at.
func (db *DB) RecordGrowth(trackCount int, at time.Time) (*domain.GrowthEntry, error) {
	entry := &domain.GrowthEntry{
		RecordedAt: at,
		Date:       at.Format(constants.GrowthDateLayout),
		Time:       at.Format(constants.GrowthTimeLayout),
		TrackCount: trackCount,
	}
	res, err := db.NamedExec(`INSERT INTO dataset_growth (date, time, track_count, recorded_at)
		VALUES (:date, :time, :track_count, :recorded_at)`, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to record growth: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	entry.ID = int(id)
	return entry, nil
}

// ListGrowth returns every sample, oldest first.
func (db *DB) ListGrowth() ([]domain.GrowthEntry, error) {
	var entries []domain.GrowthEntry
	if err := db.Select(&entries, "SELECT * FROM dataset_growth ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list growth: %w", err)
	}
	return entries, nil
}
