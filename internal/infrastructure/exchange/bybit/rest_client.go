package bybit

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
	// DefaultRestURL Bybit v5 REST 地址
	DefaultRestURL = "https://api.bybit.com"

	tickersPath   = "/v5/market/tickers"
	klinePath     = "/v5/market/kline"
	category      = "spot"
	maxKlineLimit = 1000
)

// RestClient Bybit 现货行情 REST 客户端（公开接口，无需签名）
type RestClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

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

type tickersResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

// klinesResult list 元素: [startTime, open, high, low, close, volume, turnover]，全部为字符串，按时间倒序
type klinesResult struct {
	List [][]string `json:"list"`
}

// interval 映射到 v5 kline 的 interval 参数
func interval(g domain.Granularity) (string, bool) {
	switch g {
	case domain.GranularityMinute:
		return "1", true
	case domain.GranularityHour:
		return "60", true
	case domain.GranularityDay:
		return "D", true
	default:
		return "", false
	}
}

// GetLastPrice 获取当前成交价及响应时的服务器时间
func (c *RestClient) GetLastPrice(ctx context.Context, sel domain.Selection) (string, time.Time, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", sel.Instrument)

	raw, at, err := c.publicGet(ctx, sel, tickersPath, params)
	if err != nil {
		return "", time.Time{}, err
	}
	var res tickersResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	if len(res.List) == 0 {
		return "", time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchMalformed,
			Err:       fmt.Errorf("no ticker for %s", sel.Instrument),
		}
	}
	price := strings.TrimSpace(res.List[0].LastPrice)
	if _, err := domain.ParsePrice(price); err != nil {
		return "", time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	return price, at, nil
}

// GetKlines 获取最近 limit 根 K 线，返回的点未排序
func (c *RestClient) GetKlines(ctx context.Context, sel domain.Selection, limit int) ([]domain.PricePoint, error) {
	iv, ok := interval(sel.Granularity)
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
	params.Set("category", category)
	params.Set("symbol", sel.Instrument)
	params.Set("interval", iv)
	params.Set("limit", strconv.Itoa(limit))

	raw, _, err := c.publicGet(ctx, sel, klinePath, params)
	if err != nil {
		return nil, err
	}
	var res klinesResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}

	points := make([]domain.PricePoint, 0, len(res.List))
	for i, row := range res.List {
		if len(row) < 5 {
			return nil, &domain.FetchError{
				Selection: sel,
				Reason:    domain.FetchMalformed,
				Err:       fmt.Errorf("kline %d has %d fields, want at least 5", i, len(row)),
			}
		}
		start, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: fmt.Errorf("kline %d start: %w", i, err)}
		}
		if _, err := domain.ParsePrice(row[4]); err != nil {
			return nil, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: fmt.Errorf("kline %d: %w", i, err)}
		}
		points = append(points, domain.PricePoint{Price: row[4], Time: start})
	}
	return points, nil
}

// LoadSnapshot 实现 port.SnapshotLoader
func (c *RestClient) LoadSnapshot(ctx context.Context, sel domain.Selection, limit int) (domain.Series, error) {
	if sel.Granularity.IsTick() {
		price, at, err := c.GetLastPrice(ctx, sel)
		if err != nil {
			return domain.Series{}, err
		}
		return domain.NewSeries(limit, domain.PricePoint{Price: price, Time: at.UnixMilli()}), nil
	}

	points, err := c.GetKlines(ctx, sel, limit)
	if err != nil {
		return domain.Series{}, err
	}
	// NewSeries 负责排序（接口按时间倒序返回）
	return domain.NewSeries(limit, points...), nil
}

var _ port.SnapshotLoader = (*RestClient)(nil)
