package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo"
)

var _ repo.Gateway = (*Store)(nil)

// Store keeps all three tables in process memory. It backs fallback mode
// and tests.
type Store struct {
	mu        sync.RWMutex
	websites  map[string]*domain.Website
	incidents map[string]*domain.Incident
	reports   map[string]*domain.OutageReport
}

func New() *Store {
	return &Store{
		websites:  make(map[string]*domain.Website),
		incidents: make(map[string]*domain.Incident),
		reports:   make(map[string]*domain.OutageReport),
	}
}

// Seed loads rows as-is, keeping their IDs.
func (m *Store) Seed(websites []domain.Website, incidents []domain.Incident, reports []domain.OutageReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range websites {
		w := websites[i]
		m.websites[w.ID] = &w
	}
	for i := range incidents {
		in := incidents[i]
		m.incidents[in.ID] = &in
	}
	for i := range reports {
		r := reports[i]
		m.reports[r.ID] = &r
	}
}

func (m *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Store) Close() {}

// ---- WebsiteStore ----

func (m *Store) ListWebsites(ctx context.Context, order repo.Order) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Website, 0, len(m.websites))
	for _, w := range m.websites {
		out = append(out, *w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastChecked, out[j].LastChecked
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		if order == repo.NewestCheckedFirst {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out, nil
}

func (m *Store) GetWebsite(ctx context.Context, id string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.websites[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *Store) GetWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.websites {
		if w.URL == url {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) CreateWebsite(ctx context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	cp := *w
	m.websites[w.ID] = &cp
	return nil
}

func (m *Store) UpdateWebsiteCheck(ctx context.Context, id string, status domain.Status, checkedAt time.Time, responseMS *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return repo.ErrNotFound
	}
	w.Status = status
	w.LastChecked = checkedAt
	w.ResponseTimeMS = responseMS
	return nil
}

func (m *Store) SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return repo.ErrNotFound
	}
	w.Status = status
	w.LastChecked = time.Now().UTC()
	return nil
}

func (m *Store) ResetWebsiteStatuses(ctx context.Context, status domain.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		w.Status = status
	}
	return int64(len(m.websites)), nil
}

// ---- IncidentStore ----

func (m *Store) CreateIncident(ctx context.Context, in *domain.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	cp := *in
	m.incidents[in.ID] = &cp
	return nil
}

func (m *Store) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.incidents[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *Store) IncrementMeToo(ctx context.Context, id string) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.incidents[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	in.MeTooCount++
	cp := *in
	return &cp, nil
}

func (m *Store) ListIncidents(ctx context.Context, f repo.IncidentFilter) ([]domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Incident, 0)
	for _, in := range m.incidents {
		if f.Matches(*in) {
			out = append(out, *in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Store) DeleteIncidents(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, in := range m.incidents {
		if before.IsZero() || in.Timestamp.Before(before) {
			delete(m.incidents, id)
			n++
		}
	}
	return n, nil
}

// ---- OutageReportStore ----

func (m *Store) CreateOutageReport(ctx context.Context, r *domain.OutageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *Store) ListOutageReports(ctx context.Context, websiteID string) ([]domain.OutageReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.OutageReport, 0, len(m.reports))
	for _, r := range m.reports {
		if websiteID == "" || r.WebsiteID == websiteID {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (m *Store) DeleteOutageReports(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reports {
		if before.IsZero() || r.Timestamp.Before(before) {
			delete(m.reports, id)
			n++
		}
	}
	return n, nil
}
