package probe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxyChecker asks a remote /check endpoint and treats the text "Up" as
// reachable.
type ProxyChecker struct {
	BaseURL string
	Client  *http.Client
}

func NewProxyChecker(baseURL string, timeout time.Duration) *ProxyChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProxyChecker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *ProxyChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	endpoint := p.BaseURL + "/check?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CheckResult{Name: "PROXY", Message: err.Error()}
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return CheckResult{Name: "PROXY", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return CheckResult{Name: "PROXY", Message: err.Error()}
	}
	text := strings.TrimSpace(string(body))
	if text != "Up" {
		return CheckResult{Name: "PROXY", Message: text}
	}
	return CheckResult{
		Name:      "PROXY",
		Success:   true,
		Message:   text,
		LatencyMS: time.Since(start).Seconds() * 1000,
	}
}
