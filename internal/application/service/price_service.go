package service

import (
	"context"

	"xfeed/internal/application/port"
)

type PriceService struct {
	repo port.Repository
}

func NewPriceService(repo port.Repository) *PriceService {
	return &PriceService{repo: repo}
}

// UpdatePrice 记录交易对的最新价（覆盖写）
func (s *PriceService) UpdatePrice(ctx context.Context, instrument, price string, ts int64) error {
	return s.repo.UpsertLatestPrice(ctx, instrument, price, ts)
}
