package service

import (
	"context"
	"encoding/json"
	"fmt"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

type SnapshotService struct {
	repo port.Repository
}

func NewSnapshotService(repo port.Repository) *SnapshotService {
	return &SnapshotService{repo: repo}
}

// SaveSnapshot 将 View 以 JSON 归档
func (s *SnapshotService) SaveSnapshot(ctx context.Context, ts int64, v domain.View) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.repo.InsertSnapshot(ctx, ts, v.Selection.Instrument, v.Selection.Granularity.String(), string(payload))
}
