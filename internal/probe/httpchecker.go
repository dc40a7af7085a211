package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	browserAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// HTTPChecker issues one GET with browser-like headers. A status in
// [200,400) counts as up.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Name: "HTTP", Success: false, Message: err.Error()}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", browserAccept)

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return CheckResult{Name: "HTTP", Success: false, Message: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	success := resp.StatusCode >= 200 && resp.StatusCode < 400
	out := CheckResult{
		Name:       "HTTP",
		Success:    success,
		Message:    resp.Status,
		StatusCode: resp.StatusCode,
	}
	if success {
		out.LatencyMS = latency
	}
	return out
}
