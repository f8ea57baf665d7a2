package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

const publishTimeout = 2 * time.Second

// ViewPublisher 将节流后的 View 以 JSON 发布到频道，供外部展示层订阅
type ViewPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewViewPublisher(rdb *redis.Client, channel string) *ViewPublisher {
	return &ViewPublisher{rdb: rdb, channel: channel}
}

func (p *ViewPublisher) Channel() string { return p.channel }

func (p *ViewPublisher) OnView(v domain.View) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal view failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		log.Warn().Err(err).Str("channel", p.channel).Msg("redis publish view failed")
	}
}

var _ port.Observer = (*ViewPublisher)(nil)
