package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(4), int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       UUID PRIMARY KEY,
	field    TEXT NOT NULL,
	horizon  TEXT NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	entries  JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_filter ON snapshots(field, horizon, taken_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	entries, err := prepareSnapshot(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: save snapshot")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, field, horizon, taken_at, entries) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.Filter.Field, snap.Filter.Horizon, snap.TakenAt, entries,
	)
	if err != nil {
		return eris.Wrapf(classifyPgError(err), "postgres: insert snapshot %s", snap.ID)
	}
	return nil
}

// SQLSTATEs a repeated insert can get past.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P03": true, // cannot_connect_now
}

// classifyPgError marks err transient when the insert never took effect and
// another attempt may succeed.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientPgCodes[pgErr.Code] {
		return resilience.NewTransientError(err)
	}
	if pgconn.SafeToRetry(err) {
		return resilience.NewTransientError(err)
	}
	return err
}

func (s *PostgresStore) LatestSnapshots(ctx context.Context, filter model.Filter, limit int) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, field, horizon, taken_at, entries FROM snapshots
		 WHERE field = $1 AND horizon = $2
		 ORDER BY taken_at DESC LIMIT $3`,
		filter.Field, filter.Horizon, clampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var (
			snap    model.Snapshot
			entries []byte
		)
		if err := rows.Scan(&snap.ID, &snap.Filter.Field, &snap.Filter.Horizon, &snap.TakenAt, &entries); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		snap.Entries, err = decodeEntries(entries)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: snapshot %s", snap.ID)
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: latest snapshots iterate")
}

// Open returns the store for driver, migrated and ready for use.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", "sqlite":
		if databaseURL == "" {
			databaseURL = "nobel-history.db"
		}
		st, err = NewSQLite(databaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
