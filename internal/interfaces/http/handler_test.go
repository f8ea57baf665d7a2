package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"xfeed/internal/application/usecase/monitor"
	"xfeed/internal/domain"
)

type fakeFeed struct {
	mu       sync.Mutex
	sel      domain.Selection
	selects  []domain.Selection
	restarts int
	err      error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{sel: domain.Selection{Instrument: "BTCUSDT", Granularity: domain.GranularityMinute}}
}

func (f *fakeFeed) Selection() domain.Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sel
}

func (f *fakeFeed) View() domain.View {
	sel := f.Selection()
	return domain.NewView(domain.ViewInput{
		Selection:     sel,
		Sync:          domain.SyncStreaming,
		Connection:    domain.ConnConnected,
		Series:        domain.NewSeries(0, domain.PricePoint{Price: "100", Time: 1}, domain.PricePoint{Price: "101", Time: 2}),
		BaselinePrice: "100",
		PreviousPrice: "100",
	})
}

func (f *fakeFeed) Select(_ context.Context, sel domain.Selection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.selects = append(f.selects, sel)
	f.sel = sel
	return nil
}

func (f *fakeFeed) Restart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.restarts++
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetView(t *testing.T) {
	h := NewHandler(newFakeFeed(), nil)

	w := do(t, h, http.MethodGet, feedBasePath, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["current_price"] != "101" {
		t.Errorf("current_price = %v", got["current_price"])
	}
	if got["change"] != "1" {
		t.Errorf("change = %v", got["change"])
	}
}

func TestGetSeries(t *testing.T) {
	h := NewHandler(newFakeFeed(), nil)

	w := do(t, h, http.MethodGet, feedBasePath+"/series", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		Points []domain.PricePoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Points) != 2 || got.Points[1].Price != "101" {
		t.Errorf("points = %+v", got.Points)
	}
}

func TestPutSelection(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantSel  domain.Selection
	}{
		{
			name:     "granularity only keeps instrument",
			body:     `{"granularity":"1h"}`,
			wantCode: http.StatusOK,
			wantSel:  domain.Selection{Instrument: "BTCUSDT", Granularity: domain.GranularityHour},
		},
		{
			name:     "instrument normalized",
			body:     `{"instrument":"eth/usdt","granularity":"15s"}`,
			wantCode: http.StatusOK,
			wantSel:  domain.Selection{Instrument: "ETHUSDT", Granularity: domain.GranularityTick},
		},
		{name: "unknown granularity", body: `{"granularity":"5m"}`, wantCode: http.StatusBadRequest},
		{name: "missing granularity", body: `{"instrument":"BTCUSDT"}`, wantCode: http.StatusBadRequest},
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newFakeFeed()
			h := NewHandler(feed, nil)

			w := do(t, h, http.MethodPut, feedBasePath+"/selection", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				if len(feed.selects) != 0 {
					t.Errorf("Select called on invalid request")
				}
				return
			}
			if len(feed.selects) != 1 || feed.selects[0] != tt.wantSel {
				t.Errorf("selects = %+v, want %+v", feed.selects, tt.wantSel)
			}
		})
	}
}

func TestControllerErrorsMapToStatus(t *testing.T) {
	feed := newFakeFeed()
	feed.err = monitor.ErrClosed
	h := NewHandler(feed, nil)

	if w := do(t, h, http.MethodPost, feedBasePath+"/restart", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("restart status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPut, feedBasePath+"/selection", `{"granularity":"1d"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("select status = %d", w.Code)
	}
}

func TestPostRestart(t *testing.T) {
	feed := newFakeFeed()
	h := NewHandler(feed, nil)

	w := do(t, h, http.MethodPost, feedBasePath+"/restart", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if feed.restarts != 1 {
		t.Errorf("restarts = %d", feed.restarts)
	}
}

func TestGranularities(t *testing.T) {
	h := NewHandler(newFakeFeed(), nil)

	w := do(t, h, http.MethodGet, feedBasePath+"/granularities", "")
	var got struct {
		Granularities []string `json:"granularities"`
		Current       string   `json:"current"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Granularities) != 4 || got.Current != "1m" {
		t.Errorf("got %+v", got)
	}
}

func TestWebSocketReceivesViews(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := newFakeFeed()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(feed, hub))
	defer srv.Close()

	hub.OnView(feed.View())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first domain.View
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial view: %v", err)
	}
	if first.CurrentPrice != "101" {
		t.Errorf("initial view price = %q", first.CurrentPrice)
	}

	next := feed.View()
	next.CurrentPrice = "102"
	hub.OnView(next)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var v domain.View
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("read: %v", err)
		}
		if v.CurrentPrice == "102" {
			return
		}
	}
	t.Fatal("did not receive updated view")
}
