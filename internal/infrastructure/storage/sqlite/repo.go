package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"xfeed/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS preferences (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  instrument TEXT NOT NULL,
  price TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(instrument)
);
CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices(ts_ms);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  instrument TEXT NOT NULL,
  granularity TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
CREATE INDEX IF NOT EXISTS idx_snapshots_instrument ON snapshots(instrument, granularity);
`)
	return err
}

func (r *Repo) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key=?`, key).Scan(&v)
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
		INSERT INTO preferences(key, value, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		value=excluded.value, updated_at=excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prices(instrument, price, ts_ms, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(instrument) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, instrument, price, ts, time.Now().UnixMilli())
	return err
}

// LatestPrice ok=false 表示尚无记录
func (r *Repo) LatestPrice(ctx context.Context, instrument string) (price string, ts int64, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT price, ts_ms FROM prices WHERE instrument=?`, instrument).
		Scan(&price, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return price, ts, true, nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, instrument, granularity, payload string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots(ts_ms, instrument, granularity, payload, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, ts, instrument, granularity, payload, time.Now().UnixMilli())
	return err
}

var _ port.Repository = (*Repo)(nil)
