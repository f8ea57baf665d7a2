package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xfeed/internal/domain"
)

// publicGet is the shared helper for unsigned market-data REST calls.
// Failures are returned as *domain.FetchError tagged with the selection.
// The returned time is the server's clock (Date header), or local time when absent.
func (c *RestClient) publicGet(ctx context.Context, sel domain.Selection, path string, params url.Values) ([]byte, time.Time, error) {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, &domain.FetchError{Selection: sel, Reason: domain.FetchNetwork, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, serverTime(resp.Header, c.now), nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot:
		// 429 限频，418 为被封禁的 IP
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchRateLimit,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("retry-after=%q: %s", resp.Header.Get("Retry-After"), string(body)),
		}
	default:
		return nil, time.Time{}, &domain.FetchError{
			Selection: sel,
			Reason:    domain.FetchStatus,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("binance api error: %s", string(body)),
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
