package binance

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/pricefeed"
)

// init() 自动注册 Binance 数据源工厂，避免在装配层硬编码交易所
func init() {
	pricefeed.Register(Name, NewFeedSource)
}

// NewFeedSource 组合 REST 快照、WS 推送与消息归一化
func NewFeedSource(opts pricefeed.Options) port.FeedSource {
	return port.FeedSource{
		Name:       Name,
		Loader:     NewRestClient(opts.RestURL, opts.HTTPClient),
		Connector:  NewStreamConnector(opts.WsURL, opts.Stream),
		Normalizer: port.NormalizerFunc(Normalize),
	}
}
