// Package outage serves geo-markers and the merged outage views.
package outage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/aggregate"
	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo"
	"github.com/hamed0406/isitdownchecker/internal/sample"
)

var ErrInvalidReport = errors.New("invalid outage report")

// MapView is what the outage map renders.
type MapView struct {
	Markers []domain.OutageEvent    `json:"markers"`
	Top     []domain.WebsiteOutages `json:"topWebsites"`
}

type Service struct {
	store  repo.Gateway
	log    *zap.Logger
	window time.Duration
	now    func() time.Time

	// Fallback supplies reports when the gateway is unreachable.
	Fallback func(now time.Time, websiteID string) []domain.OutageReport
}

func NewService(store repo.Gateway, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		log:      log,
		window:   aggregate.DefaultWindow,
		now:      time.Now,
		Fallback: sample.Reports,
	}
}

// SetWindow bounds the incidents and reports that feed the views.
func (s *Service) SetWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// ListReports returns outage reports newest first. Sample reports are
// served when the gateway fails.
func (s *Service) ListReports(ctx context.Context, websiteID string) []domain.OutageReport {
	list, err := s.store.ListOutageReports(ctx, websiteID)
	if err != nil {
		s.log.Warn("outage_reports_fallback", zap.String("website_id", websiteID), zap.Error(err))
		return s.Fallback(s.now().UTC(), websiteID)
	}
	return list
}

func (s *Service) SubmitReport(ctx context.Context, r domain.OutageReport) (*domain.OutageReport, error) {
	if r.WebsiteID == "" {
		return nil, fmt.Errorf("%w: websiteId is required", ErrInvalidReport)
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidReport)
	}
	if r.Status == "" {
		r.Status = domain.StatusDown
	}
	if !r.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidReport, r.Status)
	}
	if r.ReportCount <= 0 {
		r.ReportCount = 1
	}
	r.ID = ""
	r.Timestamp = s.now().UTC()

	if err := s.store.CreateOutageReport(ctx, &r); err != nil {
		return nil, fmt.Errorf("create outage report: %w", err)
	}
	s.log.Info("outage_report_created",
		zap.String("report_id", r.ID),
		zap.String("website_id", r.WebsiteID),
		zap.String("city", r.LocationCity),
	)
	return &r, nil
}

// events loads everything within the window and merges it. Partial
// failures degrade the view rather than fail it.
func (s *Service) events(ctx context.Context) []domain.OutageEvent {
	now := s.now().UTC()
	since := now.Add(-s.window)

	websites, errW := s.store.ListWebsites(ctx, repo.NewestCheckedFirst)
	incidents, errI := s.store.ListIncidents(ctx, repo.IncidentFilter{
		Types: []domain.IncidentType{domain.IncidentDown, domain.IncidentPartial},
		Since: since,
	})
	reports, errR := s.store.ListOutageReports(ctx, "")
	if errR != nil {
		reports = s.Fallback(now, "")
	}
	if err := multierr.Combine(errW, errI, errR); err != nil {
		s.log.Warn("outage_view_degraded", zap.Error(err))
	}

	checked := websites[:0:0]
	for _, w := range websites {
		if !w.LastChecked.Before(since) {
			checked = append(checked, w)
		}
	}
	recent := reports[:0:0]
	for _, r := range reports {
		if !r.Timestamp.Before(since) {
			recent = append(recent, r)
		}
	}
	return aggregate.Events(checked, incidents, recent)
}

// Map returns the markers plus the most affected websites.
func (s *Service) Map(ctx context.Context) MapView {
	events := s.events(ctx)
	return MapView{
		Markers: aggregate.Markers(events),
		Top:     aggregate.Top(events, aggregate.DefaultTopLimit),
	}
}

// Recent returns the newest outage per website.
func (s *Service) Recent(ctx context.Context) []domain.OutageEvent {
	return aggregate.Recent(s.events(ctx), aggregate.DefaultRecentLimit)
}

// Prune deletes incidents and reports older than before.
func (s *Service) Prune(ctx context.Context, before time.Time) (incidents, reports int64, err error) {
	incidents, errI := s.store.DeleteIncidents(ctx, before)
	reports, errR := s.store.DeleteOutageReports(ctx, before)
	return incidents, reports, multierr.Combine(errI, errR)
}
