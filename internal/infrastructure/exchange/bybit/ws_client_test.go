package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
	wsstream "xfeed/internal/infrastructure/websocket"
)

func TestStreamConnectorSubscribesOnConnect(t *testing.T) {
	upgrader := gws.Upgrader{}
	subs := make(chan subReq, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req subReq
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subs <- req
		_ = conn.WriteMessage(gws.TextMessage, []byte(`{"success":true,"op":"subscribe"}`))
		_ = conn.WriteMessage(gws.TextMessage, []byte(`{"topic":"publicTrade.BTCUSDT","data":[{"T":5,"S":"Buy","v":"1","p":"10"}]}`))
		// 保持连接直到客户端关闭
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewStreamConnector(wsURL, wsstream.Config{ReconnectDelay: 50 * time.Millisecond})
	sel := domain.Selection{Instrument: "BTCUSDT", Granularity: domain.GranularityTick}

	s, err := c.Open(context.Background(), sel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	select {
	case req := <-subs:
		if req.Op != "subscribe" || len(req.Args) != 1 || req.Args[0] != "publicTrade.BTCUSDT" {
			t.Fatalf("unexpected subscribe %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe request")
	}

	var updates []domain.CanonicalUpdate
	timeout := time.After(2 * time.Second)
	for len(updates) == 0 {
		select {
		case ev := <-s.Events():
			if ev.Type != port.EventMessage {
				continue
			}
			u, err := Normalize(ev.Message)
			if err != nil {
				continue
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("no trade update received")
		}
	}
	if updates[0].Price != "10" || updates[0].Time != 5 {
		t.Errorf("unexpected update %+v", updates[0])
	}
}
