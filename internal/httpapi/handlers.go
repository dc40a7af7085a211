package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	apimw "github.com/hamed0406/isitdownchecker/internal/httpapi/middleware"
	"github.com/hamed0406/isitdownchecker/internal/incident"
)

type statusResponse struct {
	Offline      bool                 `json:"offline"`
	FallbackMode bool                 `json:"fallbackMode"`
	Monitor      domain.MonitorStatus `json:"monitor"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Offline:      !s.Websites.Online(r.Context()),
		FallbackMode: s.FallbackMode,
		Monitor:      s.Monitor.Status(),
	})
}

// ---- websites ----

type checkPayload struct {
	URL string `json:"url"`
}

func (s *Server) handleCheckWebsite(w http.ResponseWriter, r *http.Request) {
	var p checkPayload
	if err := decode(w, r, &p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	site, err := s.Websites.Check(r.Context(), p.URL)
	if err != nil {
		s.fail(w, r, "check_website_error", err)
		return
	}
	s.Logger.Info("website_checked",
		zap.String("website_id", site.ID),
		zap.String("url", site.URL),
		zap.String("status", string(site.Status)),
	)
	writeJSON(w, http.StatusOK, site)
}

type popularResponse struct {
	Websites []domain.Website `json:"websites"`
	Offline  bool             `json:"offline"`
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	list, offline := s.Websites.Popular(r.Context())
	if list == nil {
		list = []domain.Website{}
	}
	writeJSON(w, http.StatusOK, popularResponse{Websites: list, Offline: offline})
}

type statusPayload struct {
	Status domain.Status `json:"status"`
}

func (s *Server) handleSetWebsiteStatus(w http.ResponseWriter, r *http.Request) {
	var p statusPayload
	if err := decode(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Status != domain.StatusUp && p.Status != domain.StatusDown {
		writeError(w, http.StatusBadRequest, "status must be up or down")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Incidents.UpdateWebsiteStatus(r.Context(), id, p.Status); err != nil {
		s.fail(w, r, "set_website_status_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(p.Status)})
}

func (s *Server) handleWebsiteIncidents(w http.ResponseWriter, r *http.Request) {
	list, err := s.Incidents.ForWebsite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "list_incidents_error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ---- incidents ----

func (s *Server) handleSubmitIncident(w http.ResponseWriter, r *http.Request) {
	var rep incident.Report
	if err := decode(w, r, &rep); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	rep.IPAddress = apimw.ClientIP(r)

	in, err := s.Incidents.Submit(r.Context(), rep)
	if err != nil {
		s.fail(w, r, "submit_incident_error", err)
		return
	}
	code := http.StatusCreated
	if rep.Type == domain.IncidentMeToo {
		code = http.StatusOK
	}
	writeJSON(w, code, in)
}

func (s *Server) handleMeToo(w http.ResponseWriter, r *http.Request) {
	in, err := s.Incidents.MeToo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "metoo_error", err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleRecentIncidents(w http.ResponseWriter, r *http.Request) {
	list, err := s.Incidents.Recent(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.fail(w, r, "list_incidents_error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleIncidentsByType(w http.ResponseWriter, r *http.Request) {
	t := domain.IncidentType(chi.URLParam(r, "type"))
	list, err := s.Incidents.ByType(r.Context(), t, queryInt(r, "hours"))
	if err != nil {
		s.fail(w, r, "list_incidents_error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ---- outages ----

func (s *Server) handleRecentOutages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Outages.Recent(r.Context()))
}

func (s *Server) handleOutageMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Outages.Map(r.Context()))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Outages.ListReports(r.Context(), r.URL.Query().Get("websiteId")))
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var rep domain.OutageReport
	if err := decode(w, r, &rep); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	out, err := s.Outages.SubmitReport(r.Context(), rep)
	if err != nil {
		s.fail(w, r, "submit_report_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// ---- monitor & admin ----

func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitor.Status())
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Monitor.Start(r.Context()); err != nil {
		s.fail(w, r, "monitor_start_error", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Monitor.Status())
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Stop()
	writeJSON(w, http.StatusOK, s.Monitor.Status())
}

func (s *Server) handleResetStatuses(w http.ResponseWriter, r *http.Request) {
	n, err := s.Websites.ResetStatuses(r.Context())
	if err != nil {
		s.fail(w, r, "reset_statuses_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (s *Server) handleClearOutages(w http.ResponseWriter, r *http.Request) {
	if err := s.Websites.ClearOutageData(r.Context()); err != nil {
		s.fail(w, r, "clear_outages_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
