package binance

import (
	"errors"
	"testing"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

func TestNormalizeTrade(t *testing.T) {
	msg := port.RawMessage{
		Kind: domain.MessageTrade,
		Data: []byte(`{"e":"trade","E":1672515782136,"s":"BTCUSDT","t":12345,"p":"0.001","q":"100","T":1672515782136,"m":true,"M":true}`),
	}
	u, err := Normalize(msg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if u.Price != "0.001" || u.Time != 1672515782136 || !u.IsFinal {
		t.Errorf("unexpected update %+v", u)
	}
	if u.Quantity != "100" || !u.BuyerMaker {
		t.Errorf("unexpected trade details %+v", u)
	}
}

func TestNormalizeKline(t *testing.T) {
	msg := port.RawMessage{
		Kind: domain.MessageBar,
		Data: []byte(`{"e":"kline","E":123456789,"s":"BTCUSDT","k":{"t":123400000,"T":123460000,"s":"BTCUSDT","i":"1m","o":"0.0010","c":"0.0020","h":"0.0025","l":"0.0015","v":"1000","x":false}}`),
	}
	u, err := Normalize(msg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if u.Price != "0.0020" || u.Time != 123400000 || u.IsFinal {
		t.Errorf("unexpected update %+v", u)
	}

	msg.Data = []byte(`{"e":"kline","k":{"t":123400000,"c":"0.0021","v":"1","x":true}}`)
	u, err = Normalize(msg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !u.IsFinal || u.Price != "0.0021" {
		t.Errorf("expected final bar at 0.0021, got %+v", u)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		kind  domain.MessageKind
		data  string
		field string
	}{
		{"not json", domain.MessageTrade, `{`, ""},
		{"trade missing price", domain.MessageTrade, `{"T":1}`, "p"},
		{"trade bad price", domain.MessageTrade, `{"p":"x","T":1}`, "p"},
		{"trade negative price", domain.MessageTrade, `{"p":"-1","T":1}`, "p"},
		{"trade missing time", domain.MessageTrade, `{"p":"1"}`, "T"},
		{"kline missing body", domain.MessageBar, `{"e":"kline"}`, "k"},
		{"kline missing time", domain.MessageBar, `{"k":{"c":"1","x":true}}`, "k.t"},
		{"kline missing close", domain.MessageBar, `{"k":{"t":1,"x":true}}`, "k.c"},
		{"kline missing final", domain.MessageBar, `{"k":{"t":1,"c":"1"}}`, "k.x"},
		{"trade payload on bar stream", domain.MessageBar, `{"p":"1","T":1}`, "k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(port.RawMessage{Kind: tt.kind, Data: []byte(tt.data)})
			var me *domain.MalformedMessageError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedMessageError, got %v", err)
			}
			if me.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, me.Field)
			}
		})
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		sel  domain.Selection
		want string
	}{
		{domain.Selection{Instrument: "BTCUSDT", Granularity: domain.GranularityTick}, "wss://stream.binance.com:9443/ws/btcusdt@trade"},
		{domain.Selection{Instrument: "btc/usdt", Granularity: domain.GranularityMinute}, "wss://stream.binance.com:9443/ws/btcusdt@kline_1m"},
		{domain.Selection{Instrument: "ETHUSDT", Granularity: domain.GranularityDay}, "wss://stream.binance.com:9443/ws/ethusdt@kline_1d"},
	}
	for _, tt := range tests {
		got, err := StreamURL(DefaultWsURL, tt.sel)
		if err != nil {
			t.Fatalf("StreamURL(%s) failed: %v", tt.sel, err)
		}
		if got != tt.want {
			t.Errorf("StreamURL(%s) = %s, want %s", tt.sel, got, tt.want)
		}
	}

	if _, err := StreamURL(DefaultWsURL, domain.Selection{Instrument: "BTCUSDT", Granularity: "5m"}); err == nil {
		t.Error("expected error for unsupported granularity")
	}
}
