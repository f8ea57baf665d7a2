package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"xfeed/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS preferences (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS latest_prices (
  instrument TEXT PRIMARY KEY,
  price NUMERIC NOT NULL,
  ts_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  instrument TEXT NOT NULL,
  granularity TEXT NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Repo) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences(key, value, updated_at) VALUES($1, $2, $3)
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at
	`, key, value, time.Now().UnixMilli())
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(instrument, price, ts_ms) VALUES($1, $2, $3)
		ON CONFLICT(instrument) DO UPDATE SET price=EXCLUDED.price, ts_ms=EXCLUDED.ts_ms
	`, instrument, price, ts)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, instrument, granularity, payload string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots(ts_ms, instrument, granularity, payload) VALUES($1, $2, $3, $4)`,
		ts, instrument, granularity, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
