package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/events"
	apimw "github.com/hamed0406/isitdownchecker/internal/httpapi/middleware"
	"github.com/hamed0406/isitdownchecker/internal/incident"
	"github.com/hamed0406/isitdownchecker/internal/outage"
	"github.com/hamed0406/isitdownchecker/internal/probe"
	"github.com/hamed0406/isitdownchecker/internal/repo"
	"github.com/hamed0406/isitdownchecker/internal/scheduler"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
	"github.com/hamed0406/isitdownchecker/internal/website"
)

// Diagnoser explains a failed probe at the DNS level.
type Diagnoser interface {
	Diagnose(ctx context.Context, target string) probe.DNSStatus
}

type Server struct {
	Logger    *zap.Logger
	Websites  *website.Service
	Incidents *incident.Service
	Outages   *outage.Service
	Monitor   *scheduler.Monitor
	Prober    probe.Checker
	DNS       Diagnoser
	Broker    events.Broker
	Gatherer  prometheus.Gatherer
	// FallbackMode is reported by /api/status when no database is configured.
	FallbackMode bool
}

// Limits are per-IP request budgets in requests per minute.
type Limits struct {
	PublicRPM   int
	PublicBurst int
	ReportRPM   int
	ReportBurst int
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, l Limits) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.Metrics)
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/check", s.handleCheck)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(apimw.RateLimit(l.PublicRPM, l.PublicBurst))
		api.Use(apimw.RequireAny(keys))

		api.Get("/status", s.handleStatus)
		api.Get("/events", s.handleEvents)

		api.Post("/websites/check", s.handleCheckWebsite)
		api.Get("/websites/popular", s.handlePopular)
		api.Get("/websites/{id}/incidents", s.handleWebsiteIncidents)

		api.Get("/incidents", s.handleRecentIncidents)
		api.Get("/incidents/type/{type}", s.handleIncidentsByType)

		api.Get("/outages/recent", s.handleRecentOutages)
		api.Get("/outages/map", s.handleOutageMap)
		api.Get("/outages/reports", s.handleListReports)

		api.Get("/monitor", s.handleMonitorStatus)

		api.Group(func(rep chi.Router) {
			rep.Use(apimw.RateLimit(l.ReportRPM, l.ReportBurst))
			rep.Post("/incidents", s.handleSubmitIncident)
			rep.Post("/incidents/{id}/metoo", s.handleMeToo)
			rep.Post("/outages/reports", s.handleSubmitReport)
		})

		api.Group(func(adm chi.Router) {
			adm.Use(apimw.RequireAdmin(keys))
			adm.Put("/websites/{id}/status", s.handleSetWebsiteStatus)
			adm.Post("/monitor/start", s.handleMonitorStart)
			adm.Post("/monitor/stop", s.handleMonitorStop)
			adm.Post("/admin/reset-statuses", s.handleResetStatuses)
			adm.Post("/admin/clear-outages", s.handleClearOutages)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, urlnorm.ErrInvalidURL),
		errors.Is(err, incident.ErrInvalidType),
		errors.Is(err, incident.ErrMissingWebsite),
		errors.Is(err, outage.ErrInvalidReport):
		return http.StatusBadRequest
	case errors.Is(err, incident.ErrRelatedNotFound), errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.Logger.Error(event,
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
