package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

const (
	// DefaultRestURL Binance 现货 REST 地址
	DefaultRestURL = "https://api.binance.com"

	tickerPricePath = "/api/v3/ticker/price"
	klinesPath      = "/api/v3/klines"
	maxKlineLimit   = 1000
)

// RestClient Binance 行情 REST 客户端（公开接口，无需签名）
type RestClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// TickerPriceResp 最新价响应
type TickerPriceResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`

	ServerTime time.Time `json:"-"` // 响应时的交易所时间
}

// Kline 只保留用到的开盘时间与收盘价
// 原始格式: [openTime, open, high, low, close, volume, closeTime, ...]
type Kline struct {
	OpenTime int64
	Close    string
}

func (k *Kline) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 5 {
		return fmt.Errorf("kline has %d fields, want at least 5", len(raw))
	}
	if err := json.Unmarshal(raw[0], &k.OpenTime); err != nil {
		return fmt.Errorf("kline open time: %w", err)
	}
	if err := json.Unmarshal(raw[4], &k.Close); err != nil {
		return fmt.Errorf("kline close: %w", err)
	}
	return nil
}

// NewRestClient 创建 Binance REST 客户端
// 不设置请求超时，依赖 ctx 取消和传输层默认值
func NewRestClient(baseURL string, httpClient *http.Client) *RestClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRestURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RestClient{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// GetTickerPrice 获取当前价格
func (c *RestClient) GetTickerPrice(ctx context.Context, sel domain.Selection) (*TickerPriceResp, error) {
	params := url.Values{}
	params.Set("symbol", sel.Instrument)

	body, at, err := c.publicGet(ctx, sel, tickerPricePath, params)
	if err != nil {
		return nil, err
	}

	var result TickerPriceResp
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	if _, err := domain.ParsePrice(result.Price); err != nil {
		return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	result.ServerTime = at
	return &result, nil
}

// GetKlines 获取最近 limit 根 K 线，按开盘时间升序
func (c *RestClient) GetKlines(ctx context.Context, sel domain.Selection, limit int) ([]Kline, error) {
	interval, ok := sel.Granularity.KlineInterval()
	if !ok {
		return nil, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchMalformed,
			Err:       fmt.Errorf("granularity %s has no kline interval", sel.Granularity),
		}
	}
	if limit <= 0 {
		limit = domain.DefaultCapacity
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	params := url.Values{}
	params.Set("symbol", sel.Instrument)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, _, err := c.publicGet(ctx, sel, klinesPath, params)
	if err != nil {
		return nil, err
	}

	var klines []Kline
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	for i, k := range klines {
		if _, err := domain.ParsePrice(k.Close); err != nil {
			return nil, &domain.FetchError{
				Selection: sel,
				Reason:    domain.FetchMalformed,
				Err:       fmt.Errorf("kline %d: %w", i, err),
			}
		}
	}
	return klines, nil
}

// LoadSnapshot 实现 port.SnapshotLoader
// tick 粒度：以当前价构造单点序列，时间取交易所时间；K 线粒度：最近 limit 根 K 线的收盘价
func (c *RestClient) LoadSnapshot(ctx context.Context, sel domain.Selection, limit int) (domain.Series, error) {
	if sel.Granularity.IsTick() {
		tp, err := c.GetTickerPrice(ctx, sel)
		if err != nil {
			return domain.Series{}, err
		}
		return domain.NewSeries(limit, domain.PricePoint{
			Price: tp.Price,
			Time:  tp.ServerTime.UnixMilli(),
		}), nil
	}

	klines, err := c.GetKlines(ctx, sel, limit)
	if err != nil {
		return domain.Series{}, err
	}
	points := make([]domain.PricePoint, 0, len(klines))
	for _, k := range klines {
		points = append(points, domain.PricePoint{Price: k.Close, Time: k.OpenTime})
	}
	return domain.NewSeries(limit, points...), nil
}

var _ port.SnapshotLoader = (*RestClient)(nil)
