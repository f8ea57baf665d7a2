package bybit

import (
	"xfeed/internal/application/port"
	"xfeed/internal/infrastructure/pricefeed"
)

// init() 自动注册 Bybit 数据源工厂
func init() {
	pricefeed.Register(Name, NewFeedSource)
}

func NewFeedSource(opts pricefeed.Options) port.FeedSource {
	return port.FeedSource{
		Name:       Name,
		Loader:     NewRestClient(opts.RestURL, opts.HTTPClient),
		Connector:  NewStreamConnector(opts.WsURL, opts.Stream),
		Normalizer: port.NormalizerFunc(Normalize),
	}
}
