// Package website checks URLs and keeps the websites table current.
package website

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/aggregate"
	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/metrics"
	"github.com/hamed0406/isitdownchecker/internal/probe"
	"github.com/hamed0406/isitdownchecker/internal/repo"
	"github.com/hamed0406/isitdownchecker/internal/sample"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

type Service struct {
	store   repo.Gateway
	checker probe.Checker
	log     *zap.Logger

	// Window is how far back user incidents annotate a website.
	Window time.Duration
	// Fallback supplies the popular list when the gateway is unreachable.
	Fallback func(now time.Time) []domain.Website

	now func() time.Time
}

func NewService(store repo.Gateway, checker probe.Checker, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		checker:  checker,
		log:      log,
		Window:   aggregate.DefaultWindow,
		Fallback: sample.Websites,
		now:      time.Now,
	}
}

// Check probes rawURL and records the outcome. Only an invalid URL is an
// error; persistence failures yield an unsaved website.
func (s *Service) Check(ctx context.Context, rawURL string) (*domain.Website, error) {
	target, err := urlnorm.Format(rawURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := s.checker.Check(ctx, target)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	status := domain.StatusFromUp(res.Success)
	metrics.ProbeTotal.WithLabelValues(string(status)).Inc()

	checkedAt := s.now().UTC()
	rt := res.ResponseTimeMS()

	w, err := s.persist(ctx, target, status, checkedAt, rt)
	if err != nil {
		s.log.Warn("website_persist_error",
			zap.String("url", target),
			zap.Error(err),
		)
		return &domain.Website{
			ID:             uuid.NewString(),
			URL:            target,
			Name:           urlnorm.WebsiteID(target),
			Status:         status,
			LastChecked:    checkedAt,
			ResponseTimeMS: rt,
		}, nil
	}

	s.log.Debug("website_checked",
		zap.String("website_id", w.ID),
		zap.String("url", target),
		zap.String("status", string(status)),
		zap.Int("http_status", res.StatusCode),
		zap.String("reason", res.Message),
	)
	return w, nil
}

func (s *Service) persist(ctx context.Context, target string, status domain.Status, checkedAt time.Time, rt *int) (*domain.Website, error) {
	existing, err := s.store.GetWebsiteByURL(ctx, target)
	switch {
	case err == nil:
		if err := s.store.UpdateWebsiteCheck(ctx, existing.ID, status, checkedAt, rt); err != nil {
			return nil, fmt.Errorf("update website: %w", err)
		}
		existing.Status = status
		existing.LastChecked = checkedAt
		existing.ResponseTimeMS = rt
		return existing, nil
	case errors.Is(err, repo.ErrNotFound):
		w := &domain.Website{
			ID:             uuid.NewString(),
			URL:            target,
			Name:           urlnorm.WebsiteID(target),
			Status:         status,
			LastChecked:    checkedAt,
			ResponseTimeMS: rt,
		}
		if err := s.store.CreateWebsite(ctx, w); err != nil {
			return nil, fmt.Errorf("create website: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("lookup website: %w", err)
	}
}

// Online reports whether the gateway answers.
func (s *Service) Online(ctx context.Context) bool {
	return s.store.Ping(ctx) == nil
}

// Popular lists websites most recently checked first, annotated with user
// reports. offline is true when the sample list was served instead.
func (s *Service) Popular(ctx context.Context) (websites []domain.Website, offline bool) {
	now := s.now().UTC()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("popular_fallback", zap.String("reason", "ping"), zap.Error(err))
		return s.Fallback(now), true
	}
	list, err := s.store.ListWebsites(ctx, repo.NewestCheckedFirst)
	if err != nil {
		s.log.Warn("popular_fallback", zap.String("reason", "list"), zap.Error(err))
		return s.Fallback(now), true
	}

	incidents, err := s.store.ListIncidents(ctx, repo.IncidentFilter{
		Types: []domain.IncidentType{domain.IncidentDown, domain.IncidentPartial},
		Since: now.Add(-s.Window),
	})
	if err != nil {
		s.log.Warn("popular_incidents_error", zap.Error(err))
		return list, false
	}
	return aggregate.Annotate(list, incidents, now, s.Window), false
}

// ResetStatuses marks every website as up.
func (s *Service) ResetStatuses(ctx context.Context) (int64, error) {
	n, err := s.store.ResetWebsiteStatuses(ctx, domain.StatusUp)
	if err != nil {
		return 0, fmt.Errorf("reset statuses: %w", err)
	}
	s.log.Info("website_statuses_reset", zap.Int64("count", n))
	return n, nil
}

// ClearOutageData removes every incident and outage report.
func (s *Service) ClearOutageData(ctx context.Context) error {
	incidents, errIncidents := s.store.DeleteIncidents(ctx, time.Time{})
	reports, errReports := s.store.DeleteOutageReports(ctx, time.Time{})
	if err := multierr.Combine(errIncidents, errReports); err != nil {
		return fmt.Errorf("clear outage data: %w", err)
	}
	s.log.Info("outage_data_cleared",
		zap.Int64("incidents", incidents),
		zap.Int64("reports", reports),
	)
	return nil
}
