package pricefeed

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/websocket"
)

// Options 构建数据源所需的连接参数
type Options struct {
	RestURL    string
	WsURL      string
	HTTPClient *http.Client
	Stream     websocket.Config
}

// Factory 根据连接参数构建一个完整的数据源（快照 + 推送流 + 消息归一化）
type Factory func(opts Options) port.FeedSource

// registry maps feed names to their factories
var registry = make(map[string]Factory)

// Register 注册数据源工厂
// 由各个交易所包的 init() 调用
func Register(name string, factory Factory) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if factory == nil {
		log.Warn().Str("feed", name).Msg("invalid feed factory")
		return
	}
	if _, exists := registry[name]; exists {
		log.Warn().Str("feed", name).Msg("feed factory already registered, overwriting")
	}
	registry[name] = factory
	log.Debug().Str("feed", name).Msg("feed factory registered")
}

// Get 获取已注册的数据源工厂
func Get(name string) (Factory, bool) {
	factory, ok := registry[strings.ToUpper(strings.TrimSpace(name))]
	return factory, ok
}
