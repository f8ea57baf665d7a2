package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// tradeMsg <symbol>@trade
type tradeMsg struct {
	Event      string `json:"e"`
	Symbol     string `json:"s"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeTime  *int64 `json:"T"`
	BuyerMaker bool   `json:"m"`
}

// klineMsg <symbol>@kline_<interval>
type klineMsg struct {
	Event string     `json:"e"`
	Kline *klineData `json:"k"`
}

type klineData struct {
	OpenTime *int64 `json:"t"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   *bool  `json:"x"`
}

var errMissing = errors.New("missing")

// Normalize 将成交/K线推送消息转换为 domain.CanonicalUpdate
//
// 成交: price=p, time=T, final=true
// K线:  price=k.c, time=k.t (开盘时间即 K 线标识), final=k.x
func Normalize(msg port.RawMessage) (domain.CanonicalUpdate, error) {
	switch msg.Kind {
	case domain.MessageTrade:
		return normalizeTrade(msg.Data)
	case domain.MessageBar:
		return normalizeKline(msg.Data)
	default:
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{
			Kind: msg.Kind,
			Err:  fmt.Errorf("unsupported message kind %d", int(msg.Kind)),
		}
	}
}

func normalizeTrade(b []byte) (domain.CanonicalUpdate, error) {
	var m tradeMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Err: err}
	}
	if _, err := domain.ParsePrice(m.Price); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Field: "p", Err: err}
	}
	if m.TradeTime == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Field: "T", Err: errMissing}
	}
	return domain.CanonicalUpdate{
		Price:      strings.TrimSpace(m.Price),
		Time:       *m.TradeTime,
		IsFinal:    true,
		Quantity:   m.Quantity,
		BuyerMaker: m.BuyerMaker,
	}, nil
}

func normalizeKline(b []byte) (domain.CanonicalUpdate, error) {
	var m klineMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Err: err}
	}
	if m.Kline == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "k", Err: errMissing}
	}
	k := m.Kline
	if k.OpenTime == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "k.t", Err: errMissing}
	}
	if _, err := domain.ParsePrice(k.Close); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "k.c", Err: err}
	}
	if k.Closed == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "k.x", Err: errMissing}
	}
	return domain.CanonicalUpdate{
		Price:    strings.TrimSpace(k.Close),
		Time:     *k.OpenTime,
		IsFinal:  *k.Closed,
		Quantity: k.Volume,
	}, nil
}

var _ port.Normalizer = port.NormalizerFunc(Normalize)
