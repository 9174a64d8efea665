package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gauguri/NobelPrediction/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       TEXT PRIMARY KEY,
	field    TEXT NOT NULL,
	horizon  TEXT NOT NULL,
	taken_at DATETIME NOT NULL,
	entries  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_filter ON snapshots(field, horizon, taken_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	entries, err := prepareSnapshot(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: save snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, field, horizon, taken_at, entries) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Filter.Field, snap.Filter.Horizon, snap.TakenAt, string(entries),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert snapshot %s", snap.ID)
	}
	return nil
}

func (s *SQLiteStore) LatestSnapshots(ctx context.Context, filter model.Filter, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, field, horizon, taken_at, entries FROM snapshots
		 WHERE field = ? AND horizon = ?
		 ORDER BY taken_at DESC LIMIT ?`,
		filter.Field, filter.Horizon, clampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var (
			snap    model.Snapshot
			entries string
		)
		if err := rows.Scan(&snap.ID, &snap.Filter.Field, &snap.Filter.Horizon, &snap.TakenAt, &entries); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		snap.Entries, err = decodeEntries([]byte(entries))
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: snapshot %s", snap.ID)
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: latest snapshots iterate")
}
