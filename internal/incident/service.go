// Package incident records user-submitted incidents and "me too"
// corroborations.
package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/aggregate"
	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/geo"
	"github.com/hamed0406/isitdownchecker/internal/repo"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

var (
	ErrRelatedNotFound = errors.New("related incident not found")
	ErrInvalidType     = errors.New("invalid incident type")
	ErrMissingWebsite  = errors.New("website url or id is required")
)

const (
	DefaultRecentLimit = 20
	DefaultHours       = 24
)

type Store interface {
	repo.IncidentStore
	SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error
}

// Report is an incoming user submission.
type Report struct {
	WebsiteID         string              `json:"websiteId"`
	WebsiteURL        string              `json:"websiteUrl"`
	Type              domain.IncidentType `json:"type"`
	IPAddress         string              `json:"-"`
	RelatedIncidentID string              `json:"relatedIncidentId,omitempty"`
}

type Service struct {
	store   Store
	locator geo.Locator
	log     *zap.Logger
	window  time.Duration
	now     func() time.Time
}

func NewService(store Store, locator geo.Locator, log *zap.Logger) *Service {
	if locator == nil {
		locator = geo.HashLocator{}
	}
	return &Service{
		store:   store,
		locator: locator,
		log:     log,
		window:  aggregate.DefaultWindow,
		now:     time.Now,
	}
}

// SetWindow changes how far back "me too" looks for an incident to
// corroborate.
func (s *Service) SetWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// Submit stores a new incident, or corroborates an existing one when the
// report is a "me too".
func (s *Service) Submit(ctx context.Context, r Report) (*domain.Incident, error) {
	url, id := urlnorm.CanonicalizeReport(r.WebsiteURL, r.WebsiteID)
	if id == "" {
		id = urlnorm.WebsiteID(url)
	}
	if id == "" {
		return nil, ErrMissingWebsite
	}
	if !r.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}

	if r.Type == domain.IncidentMeToo {
		if r.RelatedIncidentID != "" {
			return s.MeToo(ctx, r.RelatedIncidentID)
		}
		return s.corroborateLatest(ctx, id)
	}

	loc := s.locator.Locate(r.IPAddress)
	in := &domain.Incident{
		WebsiteID:  id,
		WebsiteURL: url,
		Type:       r.Type,
		Timestamp:  s.now().UTC(),
		IPAddress:  r.IPAddress,
		Location:   &loc,
	}
	if err := s.store.CreateIncident(ctx, in); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	s.log.Info("incident_reported",
		zap.String("incident_id", in.ID),
		zap.String("website_id", id),
		zap.String("type", string(in.Type)),
		zap.String("city", loc.City),
	)
	return in, nil
}

// MeToo increments the corroboration count of an existing incident.
func (s *Service) MeToo(ctx context.Context, incidentID string) (*domain.Incident, error) {
	in, err := s.store.IncrementMeToo(ctx, incidentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRelatedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment me too: %w", err)
	}
	s.log.Info("incident_corroborated",
		zap.String("incident_id", in.ID),
		zap.Int("me_too_count", in.MeTooCount),
	)
	return in, nil
}

func (s *Service) corroborateLatest(ctx context.Context, websiteID string) (*domain.Incident, error) {
	list, err := s.store.ListIncidents(ctx, repo.IncidentFilter{
		WebsiteID: websiteID,
		Types:     []domain.IncidentType{domain.IncidentDown, domain.IncidentPartial},
		Since:     s.now().Add(-s.window),
		Limit:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if len(list) == 0 {
		return nil, ErrRelatedNotFound
	}
	return s.MeToo(ctx, list[0].ID)
}

// ForWebsite returns the website's incidents, newest first.
func (s *Service) ForWebsite(ctx context.Context, websiteID string) ([]domain.Incident, error) {
	return s.list(ctx, repo.IncidentFilter{WebsiteID: websiteID})
}

// Recent returns the newest incidents across all websites.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Incident, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, repo.IncidentFilter{Limit: limit})
}

// ByType returns incidents of one type from the last hours.
func (s *Service) ByType(ctx context.Context, t domain.IncidentType, hours int) ([]domain.Incident, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	if hours <= 0 {
		hours = DefaultHours
	}
	return s.list(ctx, repo.IncidentFilter{
		Types: []domain.IncidentType{t},
		Since: s.now().Add(-time.Duration(hours) * time.Hour),
	})
}

// RecentOutages returns down and partial incidents within the window.
func (s *Service) RecentOutages(ctx context.Context) ([]domain.Incident, error) {
	return s.list(ctx, repo.IncidentFilter{
		Types: []domain.IncidentType{domain.IncidentDown, domain.IncidentPartial},
		Since: s.now().Add(-s.window),
	})
}

// list serves an empty result when the gateway fails; readers never see
// storage errors.
func (s *Service) list(ctx context.Context, f repo.IncidentFilter) ([]domain.Incident, error) {
	list, err := s.store.ListIncidents(ctx, f)
	if err != nil {
		s.log.Warn("incident_list_error",
			zap.String("website_id", f.WebsiteID),
			zap.Error(err),
		)
		return []domain.Incident{}, nil
	}
	if list == nil {
		list = []domain.Incident{}
	}
	return list, nil
}

// UpdateWebsiteStatus overrides a website's stored status.
func (s *Service) UpdateWebsiteStatus(ctx context.Context, websiteID string, status domain.Status) error {
	if status != domain.StatusUp && status != domain.StatusDown {
		return fmt.Errorf("invalid status %q", status)
	}
	if err := s.store.SetWebsiteStatus(ctx, websiteID, status); err != nil {
		return fmt.Errorf("set website status: %w", err)
	}
	s.log.Info("website_status_set",
		zap.String("website_id", websiteID),
		zap.String("status", string(status)),
	)
	return nil
}
