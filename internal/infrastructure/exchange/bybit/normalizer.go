package bybit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// dataList data 字段可能是对象也可能是数组
type dataList[T any] []T

func (d *dataList[T]) UnmarshalJSON(b []byte) error {
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) == 0 || string(b) == "null" {
		*d = nil
		return nil
	}
	switch b[0] {
	case '[':
		var arr []T
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*d = arr
		return nil
	case '{':
		var one T
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*d = dataList[T]{one}
		return nil
	default:
		return fmt.Errorf("unexpected data json: %s", string(b))
	}
}

type pushMsg[T any] struct {
	Topic string      `json:"topic"`
	Type  string      `json:"type"`
	Ts    int64       `json:"ts"`
	Data  dataList[T] `json:"data"`

	// 订阅回执 / pong
	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

// tradeItem publicTrade.<symbol>
type tradeItem struct {
	Time   *int64 `json:"T"`
	Symbol string `json:"s"`
	Side   string `json:"S"` // taker 方向
	Volume string `json:"v"`
	Price  string `json:"p"`
}

// klineItem kline.<interval>.<symbol>
type klineItem struct {
	Start   *int64 `json:"start"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm *bool  `json:"confirm"`
}

var errMissing = errors.New("missing")

// Normalize 将 publicTrade / kline 推送转换为 domain.CanonicalUpdate
// 一条推送包含多条数据时取最后一条（最新）
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

func control(op string, success *bool, retMsg string, kind domain.MessageKind) error {
	if success != nil && !*success {
		return &domain.MalformedMessageError{Kind: kind, Field: "success", Err: fmt.Errorf("%s rejected: %s", op, retMsg)}
	}
	return port.ErrSkipMessage
}

func normalizeTrade(b []byte) (domain.CanonicalUpdate, error) {
	var m pushMsg[tradeItem]
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Err: err}
	}
	if m.Op != "" || m.Topic == "" {
		return domain.CanonicalUpdate{}, control(m.Op, m.Success, m.RetMsg, domain.MessageTrade)
	}
	if len(m.Data) == 0 {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Field: "data", Err: errMissing}
	}

	t := m.Data[len(m.Data)-1]
	if _, err := domain.ParsePrice(t.Price); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Field: "p", Err: err}
	}
	if t.Time == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageTrade, Field: "T", Err: errMissing}
	}
	return domain.CanonicalUpdate{
		Price:    strings.TrimSpace(t.Price),
		Time:     *t.Time,
		IsFinal:  true,
		Quantity: t.Volume,
		// taker 卖出即买方为 maker
		BuyerMaker: t.Side == "Sell",
	}, nil
}

func normalizeKline(b []byte) (domain.CanonicalUpdate, error) {
	var m pushMsg[klineItem]
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Err: err}
	}
	if m.Op != "" || m.Topic == "" {
		return domain.CanonicalUpdate{}, control(m.Op, m.Success, m.RetMsg, domain.MessageBar)
	}
	if len(m.Data) == 0 {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "data", Err: errMissing}
	}

	k := m.Data[len(m.Data)-1]
	if k.Start == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "start", Err: errMissing}
	}
	if _, err := domain.ParsePrice(k.Close); err != nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "close", Err: err}
	}
	if k.Confirm == nil {
		return domain.CanonicalUpdate{}, &domain.MalformedMessageError{Kind: domain.MessageBar, Field: "confirm", Err: errMissing}
	}
	return domain.CanonicalUpdate{
		Price:    strings.TrimSpace(k.Close),
		Time:     *k.Start,
		IsFinal:  *k.Confirm,
		Quantity: k.Volume,
	}, nil
}

var _ port.Normalizer = port.NormalizerFunc(Normalize)
