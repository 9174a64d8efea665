// Package store persists shortlist history snapshots so rank movement can be
// compared across backend retrainings.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gauguri/NobelPrediction/internal/model"
)

// ErrNoFilter is returned when a snapshot is saved without a field or horizon.
var ErrNoFilter = eris.New("store: snapshot has no filter")

// Store defines the persistence interface for shortlist history.
type Store interface {
	// SaveSnapshot persists snap, assigning its ID and TakenAt when unset.
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	// LatestSnapshots returns up to limit snapshots for a filter, newest first.
	LatestSnapshots(ctx context.Context, filter model.Filter, limit int) ([]model.Snapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func prepareSnapshot(snap *model.Snapshot) ([]byte, error) {
	if snap.Filter.Field == "" || snap.Filter.Horizon == "" {
		return nil, ErrNoFilter
	}
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	snap.TakenAt = snap.TakenAt.UTC()
	entries := snap.Entries
	if entries == nil {
		entries = []model.SnapshotEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, eris.Wrap(err, "marshal entries")
	}
	return data, nil
}

func decodeEntries(data []byte) ([]model.SnapshotEntry, error) {
	var entries []model.SnapshotEntry
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "unmarshal entries")
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 2
	}
	if limit > 100 {
		return 100
	}
	return limit
}
