package storage

import (
	"context"
	"sync"

	"xfeed/internal/application/port"
)

// DefaultSnapshotRetention 内存中保留的快照条数
const DefaultSnapshotRetention = 256

// SnapshotRecord represents a single archived view
type SnapshotRecord struct {
	Ts          int64
	Instrument  string
	Granularity string
	Payload     string
}

// LatestPrice represents the last persisted price of an instrument
type LatestPrice struct {
	Price string
	Ts    int64
}

// InMemoryRepository 未启用任何外部存储时使用，进程退出即丢失
type InMemoryRepository struct {
	mu        sync.RWMutex
	prefs     map[string]string
	prices    map[string]LatestPrice
	snapshots []SnapshotRecord
	retention int
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(retention int) *InMemoryRepository {
	if retention <= 0 {
		retention = DefaultSnapshotRetention
	}
	return &InMemoryRepository{
		prefs:     make(map[string]string),
		prices:    make(map[string]LatestPrice),
		snapshots: make([]SnapshotRecord, 0),
		retention: retention,
	}
}

func (r *InMemoryRepository) GetPreference(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.prefs[key]
	return v, ok, nil
}

func (r *InMemoryRepository) SetPreference(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[key] = value
	return nil
}

func (r *InMemoryRepository) UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[instrument] = LatestPrice{Price: price, Ts: ts}
	return nil
}

func (r *InMemoryRepository) LatestPrice(instrument string) (LatestPrice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prices[instrument]
	return p, ok
}

func (r *InMemoryRepository) InsertSnapshot(ctx context.Context, ts int64, instrument, granularity, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, SnapshotRecord{
		Ts:          ts,
		Instrument:  instrument,
		Granularity: granularity,
		Payload:     payload,
	})
	if over := len(r.snapshots) - r.retention; over > 0 {
		r.snapshots = append(r.snapshots[:0:0], r.snapshots[over:]...)
	}
	return nil
}

// Snapshots 按写入顺序返回副本
func (r *InMemoryRepository) Snapshots() []SnapshotRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SnapshotRecord, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

func (r *InMemoryRepository) Close() error {
	return nil
}

var _ port.Repository = (*InMemoryRepository)(nil)
