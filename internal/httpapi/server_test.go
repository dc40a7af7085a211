package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/events"
	apimw "github.com/hamed0406/isitdownchecker/internal/httpapi/middleware"
	"github.com/hamed0406/isitdownchecker/internal/incident"
	"github.com/hamed0406/isitdownchecker/internal/metrics"
	"github.com/hamed0406/isitdownchecker/internal/outage"
	"github.com/hamed0406/isitdownchecker/internal/probe"
	"github.com/hamed0406/isitdownchecker/internal/repo/memory"
	"github.com/hamed0406/isitdownchecker/internal/scheduler"
	"github.com/hamed0406/isitdownchecker/internal/website"
)

// ---- test helpers ----

type fakeChecker struct {
	up map[string]bool
}

func (f *fakeChecker) Check(_ context.Context, target string) probe.CheckResult {
	if f.up[target] {
		return probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 12.5, Message: "200 OK"}
	}
	return probe.CheckResult{Success: false, StatusCode: 503, Message: "503 Service Unavailable"}
}

type fakeDNS struct{ calls int }

func (f *fakeDNS) Diagnose(ctx context.Context, target string) probe.DNSStatus {
	f.calls++
	return probe.DNSStatus{Domain: target, Class: probe.DNSNXDomain}
}

type env struct {
	ts     *httptest.Server
	store  *memory.Store
	broker *events.Memory
	dns    *fakeDNS
}

func setup(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop()
	broker := events.NewMemory()
	store := memory.New()
	gw := events.Observe(store, broker, log)
	chk := &fakeChecker{up: map[string]bool{"https://example.com": true}}

	websites := website.NewService(gw, chk, log)
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatal(err)
	}
	dns := &fakeDNS{}

	srv := &Server{
		Logger:    log,
		Websites:  websites,
		Incidents: incident.NewService(gw, nil, log),
		Outages:   outage.NewService(gw, log),
		Monitor:   scheduler.NewMonitor(log, gw, websites, nil, time.Hour),
		Prober:    chk,
		DNS:       dns,
		Broker:    broker,
		Gatherer:  reg,
	}
	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}
	// very high rate limits to avoid flakiness in tests
	h := srv.Router(keys, nil, Limits{PublicRPM: 10_000, PublicBurst: 10_000, ReportRPM: 10_000, ReportBurst: 10_000})
	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		ts.Close()
		_ = broker.Close()
	})
	return &env{ts: ts, store: store, broker: broker, dns: dns}
}

func (e *env) do(t *testing.T, method, path, key string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// ---- tests ----

func TestHealthAndCheck(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != 200 || readBody(t, resp) != "OK" {
		t.Fatalf("health: %d", resp.StatusCode)
	}

	resp = e.do(t, http.MethodGet, "/check", "", nil)
	if resp.StatusCode != http.StatusBadRequest || strings.TrimSpace(readBody(t, resp)) != "URL parameter is required" {
		t.Fatalf("missing url: %d", resp.StatusCode)
	}

	cases := []struct {
		url, want string
	}{
		{"example", "Up"},
		{"https://example.com", "Up"},
		{"down.example.org", "Down"},
		{"http://", "Down"},
	}
	for _, c := range cases {
		resp := e.do(t, http.MethodGet, "/check?url="+c.url, "", nil)
		if got := readBody(t, resp); got != c.want {
			t.Fatalf("check %q = %q, want %q", c.url, got, c.want)
		}
	}
	if e.dns.calls != 1 {
		t.Fatalf("dns diagnosis should run once for the probed down url, ran %d", e.dns.calls)
	}
}

func TestAPI_RequiresKey(t *testing.T) {
	e := setup(t)
	if resp := e.do(t, http.MethodGet, "/api/status", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPost, "/api/admin/reset-statuses", "pub_test", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("public key on admin route: want 403, got %d", resp.StatusCode)
	}
}

func TestCheckWebsite_AndPopular(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodPost, "/api/websites/check", "pub_test", map[string]string{"url": "example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var site domain.Website
	decodeInto(t, resp, &site)
	if site.Status != domain.StatusUp || site.Name != "example" || site.ResponseTimeMS == nil {
		t.Fatalf("unexpected website: %+v", site)
	}

	resp = e.do(t, http.MethodPost, "/api/websites/check", "pub_test", map[string]string{"url": "ftp://nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid url: want 400, got %d", resp.StatusCode)
	}

	resp = e.do(t, http.MethodGet, "/api/websites/popular", "pub_test", nil)
	var pop popularResponse
	decodeInto(t, resp, &pop)
	if pop.Offline || len(pop.Websites) != 1 || pop.Websites[0].ID != site.ID {
		t.Fatalf("unexpected popular: %+v", pop)
	}
}

func TestIncidents_SubmitMeTooAndQuery(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodPost, "/api/incidents", "pub_test", map[string]string{
		"websiteUrl": "https://twitter.com",
		"type":       "down",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var in domain.Incident
	decodeInto(t, resp, &in)
	if in.WebsiteID != "x" || in.WebsiteURL != "https://x.com" || in.Location == nil {
		t.Fatalf("unexpected incident: %+v", in)
	}

	resp = e.do(t, http.MethodPost, "/api/incidents/"+in.ID+"/metoo", "pub_test", nil)
	var bumped domain.Incident
	decodeInto(t, resp, &bumped)
	if bumped.ID != in.ID || bumped.MeTooCount != 1 {
		t.Fatalf("me too not applied: %+v", bumped)
	}

	resp = e.do(t, http.MethodPost, "/api/incidents", "pub_test", map[string]string{
		"websiteId":         "x",
		"type":              "metoo",
		"relatedIncidentId": "missing",
	})
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(readBody(t, resp), "related incident not found") {
		t.Fatalf("want 404 related incident not found, got %d", resp.StatusCode)
	}

	resp = e.do(t, http.MethodPost, "/api/incidents", "pub_test", map[string]string{"websiteId": "x", "type": "bogus"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid type: want 400, got %d", resp.StatusCode)
	}

	var list []domain.Incident
	decodeInto(t, e.do(t, http.MethodGet, "/api/websites/x/incidents", "pub_test", nil), &list)
	if len(list) != 1 {
		t.Fatalf("want 1 incident for x, got %d", len(list))
	}
	decodeInto(t, e.do(t, http.MethodGet, "/api/incidents/type/down?hours=1", "pub_test", nil), &list)
	if len(list) != 1 {
		t.Fatalf("want 1 down incident, got %d", len(list))
	}
	decodeInto(t, e.do(t, http.MethodGet, "/api/incidents?limit=5", "pub_test", nil), &list)
	if len(list) != 1 {
		t.Fatalf("want 1 recent incident, got %d", len(list))
	}
}

func TestOutages(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodPost, "/api/outages/reports", "pub_test", map[string]any{
		"websiteId": "reddit", "latitude": 52.52, "longitude": 13.405, "locationCity": "Berlin",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp = e.do(t, http.MethodPost, "/api/outages/reports", "pub_test", map[string]any{"websiteId": "reddit", "latitude": 120})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad coordinates: want 400, got %d", resp.StatusCode)
	}

	var reports []domain.OutageReport
	decodeInto(t, e.do(t, http.MethodGet, "/api/outages/reports?websiteId=reddit", "pub_test", nil), &reports)
	if len(reports) != 1 {
		t.Fatalf("want 1 report, got %d", len(reports))
	}

	var view outage.MapView
	decodeInto(t, e.do(t, http.MethodGet, "/api/outages/map", "pub_test", nil), &view)
	if len(view.Markers) != 1 || len(view.Top) != 1 || view.Top[0].WebsiteID != "reddit" {
		t.Fatalf("unexpected map: %+v", view)
	}

	var recent []domain.OutageEvent
	decodeInto(t, e.do(t, http.MethodGet, "/api/outages/recent", "pub_test", nil), &recent)
	if len(recent) != 1 || recent[0].SourceKind != domain.SourceGeoMarker {
		t.Fatalf("unexpected recent: %+v", recent)
	}
}

func TestAdminAndMonitor(t *testing.T) {
	e := setup(t)
	e.store.Seed([]domain.Website{{ID: "w1", URL: "https://example.com", Status: domain.StatusDown}}, nil, nil)

	resp := e.do(t, http.MethodPut, "/api/websites/w1/status", "adm_test", map[string]string{"status": "unknown"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	resp = e.do(t, http.MethodPut, "/api/websites/missing/status", "adm_test", map[string]string{"status": "up"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}

	resp = e.do(t, http.MethodPost, "/api/admin/reset-statuses", "adm_test", nil)
	var reset map[string]int64
	decodeInto(t, resp, &reset)
	if reset["updated"] != 1 {
		t.Fatalf("unexpected reset response: %v", reset)
	}
	if resp := e.do(t, http.MethodPost, "/api/admin/clear-outages", "adm_test", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear: want 204, got %d", resp.StatusCode)
	}

	var st domain.MonitorStatus
	decodeInto(t, e.do(t, http.MethodPost, "/api/monitor/start", "adm_test", nil), &st)
	if !st.IsRunning || st.WebsiteCount != 1 {
		t.Fatalf("monitor not started: %+v", st)
	}
	decodeInto(t, e.do(t, http.MethodPost, "/api/monitor/stop", "adm_test", nil), &st)
	if st.IsRunning {
		t.Fatalf("monitor not stopped: %+v", st)
	}

	var status statusResponse
	decodeInto(t, e.do(t, http.MethodGet, "/api/status", "pub_test", nil), &status)
	if status.Offline || status.Monitor.WebsiteCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestEventsStream(t *testing.T) {
	e := setup(t)

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/events?api_key=pub_test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got := make(chan events.Event, 1)
	go func() {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err == nil {
			got <- ev
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		// the subscription is registered asynchronously after the upgrade
		e.do(t, http.MethodPost, "/api/outages/reports", "pub_test", map[string]any{"websiteId": "att", "latitude": 1, "longitude": 1})
		select {
		case ev := <-got:
			if ev.Table != events.TableOutageReports || ev.Op != events.OpInsert {
				t.Fatalf("unexpected event: %+v", ev)
			}
			return
		case <-deadline:
			t.Fatal("no event received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := setup(t)
	e.do(t, http.MethodGet, "/health", "", nil)
	body := readBody(t, e.do(t, http.MethodGet, "/metrics", "", nil))
	if !strings.Contains(body, `isitdown_http_requests_total{code="200",method="GET",route="/health"}`) {
		t.Fatalf("request metric missing:\n%s", body)
	}
}
