// Package aggregate reconciles probe results, user incidents and outage
// reports into one outage picture. Everything here is pure: callers load
// the rows and pass in the reference time.
package aggregate

import (
	"sort"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/geo"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

const (
	DefaultWindow      = 24 * time.Hour
	DefaultRecentLimit = 6
	DefaultTopLimit    = 5
)

// WebsiteKey is the id incidents and reports use to refer to a website.
// Stored websites carry it in Name; the URL is the fallback.
func WebsiteKey(w domain.Website) string {
	if w.Name != "" {
		return w.Name
	}
	return urlnorm.WebsiteID(w.URL)
}

// Annotate marks websites that have a recent down or partial incident.
// Stored status is left untouched.
func Annotate(websites []domain.Website, incidents []domain.Incident, now time.Time, window time.Duration) []domain.Website {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	var relevant []domain.Incident
	latestByID := map[string]domain.Incident{}
	for _, in := range incidents {
		if !in.Type.IsOutage() || in.Timestamp.Before(cutoff) {
			continue
		}
		relevant = append(relevant, in)
		if cur, ok := latestByID[in.WebsiteID]; !ok || in.Timestamp.After(cur.Timestamp) {
			latestByID[in.WebsiteID] = in
		}
	}

	out := make([]domain.Website, len(websites))
	for i, w := range websites {
		out[i] = w
		in, ok := latestByID[w.ID]
		if !ok {
			in, ok = latestByID[WebsiteKey(w)]
		}
		if !ok {
			in, ok = latestByHost(relevant, w.URL)
		}
		if !ok {
			continue
		}
		typ := in.Type
		count := in.MeTooCount + 1
		ts := in.Timestamp
		out[i].UserReported = true
		out[i].IncidentType = &typ
		out[i].ReportCount = &count
		out[i].ReportTime = &ts
	}
	return out
}

func latestByHost(incidents []domain.Incident, websiteURL string) (domain.Incident, bool) {
	var (
		best  domain.Incident
		found bool
	)
	for _, in := range incidents {
		if !urlnorm.SameHost(websiteURL, in.WebsiteURL) {
			continue
		}
		if !found || in.Timestamp.After(best.Timestamp) {
			best, found = in, true
		}
	}
	return best, found
}

// Events builds the unified event list. Duplicates (same source and id)
// are dropped; the first occurrence wins.
func Events(websites []domain.Website, incidents []domain.Incident, reports []domain.OutageReport) []domain.OutageEvent {
	seen := map[string]bool{}
	var out []domain.OutageEvent
	add := func(e domain.OutageEvent) {
		key := string(e.SourceKind) + "/" + e.ID
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, e)
	}

	for _, w := range websites {
		if w.Status != domain.StatusDown {
			continue
		}
		add(domain.OutageEvent{
			ID:         w.ID,
			WebsiteID:  WebsiteKey(w),
			WebsiteURL: w.URL,
			SourceKind: domain.SourceProbe,
			Status:     domain.StatusDown,
			Timestamp:  w.LastChecked,
		})
	}
	for _, in := range incidents {
		typ := in.Type
		add(domain.OutageEvent{
			ID:           in.ID,
			WebsiteID:    in.WebsiteID,
			WebsiteURL:   in.WebsiteURL,
			SourceKind:   domain.SourceUserReport,
			Status:       domain.StatusDown,
			IncidentType: &typ,
			Timestamp:    in.Timestamp,
			Location:     geo.WithCoordinates(in.Location),
			ReportCount:  in.MeTooCount + 1,
		})
	}
	for _, r := range reports {
		status := r.Status
		if status == "" {
			status = domain.StatusDown
		}
		add(domain.OutageEvent{
			ID:         r.ID,
			WebsiteID:  r.WebsiteID,
			SourceKind: domain.SourceGeoMarker,
			Status:     status,
			Timestamp:  r.Timestamp,
			Location: &domain.Location{
				City:      r.LocationCity,
				Country:   r.LocationCountry,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			},
			ReportCount: r.ReportCount,
		})
	}
	return out
}

// Recent keeps the newest event per website, newest first.
func Recent(events []domain.OutageEvent, limit int) []domain.OutageEvent {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	latest := map[string]domain.OutageEvent{}
	for _, e := range events {
		if cur, ok := latest[e.WebsiteID]; !ok || e.Timestamp.After(cur.Timestamp) {
			latest[e.WebsiteID] = e
		}
	}
	out := make([]domain.OutageEvent, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].WebsiteID < out[j].WebsiteID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Top ranks websites by number of events.
func Top(events []domain.OutageEvent, limit int) []domain.WebsiteOutages {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	byID := map[string]*domain.WebsiteOutages{}
	for _, e := range events {
		s, ok := byID[e.WebsiteID]
		if !ok {
			s = &domain.WebsiteOutages{WebsiteID: e.WebsiteID}
			byID[e.WebsiteID] = s
		}
		s.EventCount++
		s.ReportCount += e.ReportCount
	}
	out := make([]domain.WebsiteOutages, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		if a.ReportCount != b.ReportCount {
			return a.ReportCount > b.ReportCount
		}
		return a.WebsiteID < b.WebsiteID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Markers returns the events that can be placed on a map.
func Markers(events []domain.OutageEvent) []domain.OutageEvent {
	out := make([]domain.OutageEvent, 0, len(events))
	for _, e := range events {
		if e.HasCoordinates() {
			out = append(out, e)
		}
	}
	return out
}
