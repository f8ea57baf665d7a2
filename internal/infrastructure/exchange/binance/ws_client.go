package binance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	wsstream "xfeed/internal/infrastructure/websocket"
)

// DefaultWsURL Binance 现货推送地址
const DefaultWsURL = "wss://stream.binance.com:9443"

// Name 数据源名称
const Name = "BINANCE"

// StreamConnector 为 Selection 打开 Binance 原始流（trade 或 kline）
type StreamConnector struct {
	wsURL string // e.g. wss://stream.binance.com:9443
	cfg   wsstream.Config
}

func NewStreamConnector(wsURL string, cfg wsstream.Config) *StreamConnector {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = DefaultWsURL
	}
	return &StreamConnector{
		wsURL: strings.TrimSpace(wsURL),
		cfg:   cfg,
	}
}

func (c *StreamConnector) Open(ctx context.Context, sel domain.Selection) (port.Stream, error) {
	u, err := StreamURL(c.wsURL, sel)
	if err != nil {
		return nil, err
	}
	return wsstream.Open(ctx, Name, u, sel.Granularity.MessageKind(), c.cfg), nil
}

// StreamURL 构建单流地址
// tick: /ws/btcusdt@trade；K 线: /ws/btcusdt@kline_1m
func StreamURL(base string, sel domain.Selection) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("binance ws_url empty")
	}
	sym := strings.ToLower(domain.NormalizeInstrument(sel.Instrument))
	if sym == "" {
		return "", errors.New("instrument empty")
	}

	var stream string
	if sel.Granularity.IsTick() {
		stream = sym + "@trade"
	} else {
		interval, ok := sel.Granularity.KlineInterval()
		if !ok {
			return "", fmt.Errorf("unsupported granularity %q", sel.Granularity)
		}
		stream = sym + "@kline_" + interval
	}

	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + stream
	u.RawQuery = ""
	return u.String(), nil
}

var _ port.StreamConnector = (*StreamConnector)(nil)
