package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xfeed/internal/domain"
)

// v5 公共接口返回码
const (
	retCodeOK        = 0
	retCodeRateLimit = 10006
)

// envelope v5 统一响应外壳
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"` // 服务器时间 ms
}

// publicGet 发送无签名的行情请求，返回 result 字段与服务器时间
// 服务器时间依次取 time 字段、Date 头、本地时间；失败一律返回 *domain.FetchError
func (c *RestClient) publicGet(ctx context.Context, sel domain.Selection, path string, params url.Values) (json.RawMessage, time.Time, error) {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusForbidden:
		// 403 为 IP 访问过于频繁
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchRateLimit,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("bybit http %d: %s", resp.StatusCode, string(body)),
		}
	default:
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchStatus,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("bybit http %d: %s", resp.StatusCode, string(body)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchMalformed, Err: err}
	}
	switch env.RetCode {
	case retCodeOK:
		if env.Time > 0 {
			return env.Result, time.UnixMilli(env.Time), nil
		}
		return env.Result, serverTime(resp.Header, c.now), nil
	case retCodeRateLimit:
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchRateLimit,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("bybit api error %d: %s", env.RetCode, env.RetMsg),
		}
	default:
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchStatus,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("bybit api error %d: %s", env.RetCode, env.RetMsg),
		}
	}
}

// serverTime 响应 Date 头（秒级）；缺失或无法解析时退回本地时间
func serverTime(h http.Header, now func() time.Time) time.Time {
	if d := h.Get("Date"); d != "" {
		if t, err := http.ParseTime(d); err == nil {
			return t
		}
	}
	return now()
}
