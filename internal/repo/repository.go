package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Order sorts websites by last_checked.
type Order int

const (
	OldestCheckedFirst Order = iota
	NewestCheckedFirst
)

// IncidentFilter narrows ListIncidents. Zero values mean "no filter";
// results are always newest first.
type IncidentFilter struct {
	WebsiteID string
	Types     []domain.IncidentType
	Since     time.Time
	Limit     int
}

// Matches applies the filter to a single incident, ignoring Limit.
func (f IncidentFilter) Matches(in domain.Incident) bool {
	if f.WebsiteID != "" && in.WebsiteID != f.WebsiteID {
		return false
	}
	if !f.Since.IsZero() && in.Timestamp.Before(f.Since) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if in.Type == t {
			return true
		}
	}
	return false
}

// Ports (interfaces) implemented by the postgres, sqlite and memory adapters.
type WebsiteStore interface {
	ListWebsites(ctx context.Context, order Order) ([]domain.Website, error)
	GetWebsite(ctx context.Context, id string) (*domain.Website, error)
	GetWebsiteByURL(ctx context.Context, url string) (*domain.Website, error)
	CreateWebsite(ctx context.Context, w *domain.Website) error
	UpdateWebsiteCheck(ctx context.Context, id string, status domain.Status, checkedAt time.Time, responseMS *int) error
	// SetWebsiteStatus overrides the status and stamps last_checked with now.
	SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error
	ResetWebsiteStatuses(ctx context.Context, status domain.Status) (int64, error)
}

type IncidentStore interface {
	CreateIncident(ctx context.Context, in *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	// IncrementMeToo bumps me_too_count in place and returns the updated row.
	IncrementMeToo(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, f IncidentFilter) ([]domain.Incident, error)
	// DeleteIncidents removes rows older than before; a zero time removes all.
	DeleteIncidents(ctx context.Context, before time.Time) (int64, error)
}

type OutageReportStore interface {
	CreateOutageReport(ctx context.Context, r *domain.OutageReport) error
	// ListOutageReports returns reports newest first; empty websiteID lists all.
	ListOutageReports(ctx context.Context, websiteID string) ([]domain.OutageReport, error)
	DeleteOutageReports(ctx context.Context, before time.Time) (int64, error)
}

// Gateway is the full persistence surface used by the services.
type Gateway interface {
	WebsiteStore
	IncidentStore
	OutageReportStore
	Ping(ctx context.Context) error
	Close()
}
