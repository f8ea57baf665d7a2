package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// GranularityKey 保存最近一次选择的粒度
const GranularityKey = "chart_interval"

type PreferenceService struct {
	store    port.PreferenceStore
	fallback domain.Granularity
}

// NewPreferenceService fallback 无效时使用 domain.DefaultGranularity
func NewPreferenceService(store port.PreferenceStore, fallback domain.Granularity) *PreferenceService {
	if !fallback.Valid() {
		fallback = domain.DefaultGranularity
	}
	return &PreferenceService{store: store, fallback: fallback}
}

// Granularity 读取保存的粒度；未保存、读取失败或值无效时返回默认值
func (s *PreferenceService) Granularity(ctx context.Context) domain.Granularity {
	if s.store == nil {
		return s.fallback
	}
	v, ok, err := s.store.GetPreference(ctx, GranularityKey)
	if err != nil {
		log.Warn().Err(err).Str("key", GranularityKey).Msg("read preference failed, using default")
		return s.fallback
	}
	if !ok {
		return s.fallback
	}
	g, err := domain.ParseGranularity(v)
	if err != nil {
		log.Warn().Str("key", GranularityKey).Str("value", v).Msg("invalid preference, using default")
		return s.fallback
	}
	return g
}

func (s *PreferenceService) SaveGranularity(ctx context.Context, g domain.Granularity) error {
	if s.store == nil {
		return nil
	}
	return s.store.SetPreference(ctx, GranularityKey, g.String())
}
