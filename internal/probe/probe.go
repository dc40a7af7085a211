package probe

import "context"

// CheckResult is the unified result of a single probe.
//
// StatusCode is the HTTP status when one was received and 0 for transport
// errors or proxied checks. LatencyMS is only meaningful when Success is true.
type CheckResult struct {
	Success    bool    `json:"success"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code,omitempty"`
	Name       string  `json:"name"`
}

// ResponseTimeMS returns the rounded latency of a successful probe and nil
// otherwise, matching how websites record their response time.
func (r CheckResult) ResponseTimeMS() *int {
	if !r.Success {
		return nil
	}
	ms := int(r.LatencyMS + 0.5)
	return &ms
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, target string) CheckResult

func (f CheckerFunc) Check(ctx context.Context, target string) CheckResult {
	return f(ctx, target)
}
