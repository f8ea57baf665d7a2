package port

import "context"

// PreferenceStore 持久化的用户偏好（键值字符串）
type PreferenceStore interface {
	// GetPreference 返回 ok=false 表示未保存过
	GetPreference(ctx context.Context, key string) (value string, ok bool, err error)
	SetPreference(ctx context.Context, key, value string) error
}

type Repository interface {
	PreferenceStore

	// Price operations
	UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error

	// Snapshot operations
	InsertSnapshot(ctx context.Context, ts int64, instrument, granularity, payload string) error

	// Connection management
	Close() error
}
