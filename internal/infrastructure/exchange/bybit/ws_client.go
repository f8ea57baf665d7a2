package bybit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gws "github.com/gorilla/websocket"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	wsstream "xfeed/internal/infrastructure/websocket"
)

// DefaultWsURL Bybit v5 现货公共推送地址
const DefaultWsURL = "wss://stream.bybit.com/v5/public/spot"

// Name 数据源名称
const Name = "BYBIT"

type subReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// StreamConnector 连接后发送订阅请求；每次重连都会重新订阅
type StreamConnector struct {
	wsURL string
	cfg   wsstream.Config
}

func NewStreamConnector(wsURL string, cfg wsstream.Config) *StreamConnector {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = DefaultWsURL
	}
	return &StreamConnector{wsURL: strings.TrimSpace(wsURL), cfg: cfg}
}

func (c *StreamConnector) Open(ctx context.Context, sel domain.Selection) (port.Stream, error) {
	topic, err := Topic(sel)
	if err != nil {
		return nil, err
	}
	cfg := c.cfg
	cfg.OnConnect = func(conn *gws.Conn) error {
		return conn.WriteJSON(subReq{Op: "subscribe", Args: []string{topic}})
	}
	return wsstream.Open(ctx, Name, c.wsURL, sel.Granularity.MessageKind(), cfg), nil
}

// Topic tick: publicTrade.BTCUSDT；K 线: kline.1.BTCUSDT
func Topic(sel domain.Selection) (string, error) {
	sym := domain.NormalizeInstrument(sel.Instrument)
	if sym == "" {
		return "", errors.New("instrument empty")
	}
	if sel.Granularity.IsTick() {
		return "publicTrade." + sym, nil
	}
	iv, ok := interval(sel.Granularity)
	if !ok {
		return "", fmt.Errorf("unsupported granularity %q", sel.Granularity)
	}
	return "kline." + iv + "." + sym, nil
}

var _ port.StreamConnector = (*StreamConnector)(nil)
