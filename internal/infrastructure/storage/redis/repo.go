package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"xfeed/internal/application/port"
)

type Repo struct {
	rdb            *redis.Client
	prefix         string
	ttl            time.Duration
	keyLatest      string // prefix + ":latest"
	keyPrefs       string // prefix + ":prefs"
	snapshotStream string
	snapshotChan   string
}

type LatestPrice struct {
	Instrument string `json:"instrument"`
	Price      string `json:"price"`
	Ts         int64  `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, snapshotStream, snapshotChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "xfeed"
	}
	if strings.TrimSpace(snapshotStream) == "" {
		snapshotStream = prefix + ":snapshots"
	}
	if strings.TrimSpace(snapshotChan) == "" {
		snapshotChan = prefix + ":snapshots:pub"
	}
	return &Repo{
		rdb:            rdb,
		prefix:         prefix,
		ttl:            ttl,
		keyLatest:      prefix + ":latest",
		keyPrefs:       prefix + ":prefs",
		snapshotStream: snapshotStream,
		snapshotChan:   snapshotChan,
	}
}

// Close 连接由 ServiceContext 统一关闭
func (r *Repo) Close() error { return nil }

func (r *Repo) GetPreference(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.keyPrefs, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Repo) SetPreference(ctx context.Context, key, value string) error {
	return r.rdb.HSet(ctx, r.keyPrefs, key, value).Err()
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error {
	if strings.TrimSpace(price) == "" {
		return nil
	}
	lp := LatestPrice{Instrument: instrument, Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "BTCUSDT" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, instrument, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, instrument, granularity, payload string) error {
	// 1) Stream: XADD <stream> * ts_ms instrument granularity payload
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.snapshotStream,
		Values: map[string]any{
			"ts_ms":       ts,
			"instrument":  instrument,
			"granularity": granularity,
			"payload":     payload,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	msg := fmt.Sprintf(`{"ts_ms":%d,"instrument":%q,"granularity":%q,"payload":%s}`, ts, instrument, granularity, payload)
	return r.rdb.Publish(ctx, r.snapshotChan, msg).Err()
}

var _ port.Repository = (*Repo)(nil)
