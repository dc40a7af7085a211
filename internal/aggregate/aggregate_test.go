package aggregate

import (
	"testing"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) time.Time { return now.Add(-d) }

func TestAnnotate_MatchesByWebsiteID(t *testing.T) {
	websites := []domain.Website{
		{ID: "uuid-1", Name: "google", URL: "https://google.com", Status: domain.StatusUp},
		{ID: "uuid-2", Name: "github", URL: "https://github.com", Status: domain.StatusUp},
	}
	incidents := []domain.Incident{
		{ID: "i1", WebsiteID: "google", Type: domain.IncidentDown, Timestamp: ago(3 * time.Hour), MeTooCount: 1},
		{ID: "i2", WebsiteID: "google", Type: domain.IncidentPartial, Timestamp: ago(time.Hour), MeTooCount: 4},
		{ID: "i3", WebsiteID: "github", Type: domain.IncidentSlow, Timestamp: ago(time.Hour)},
	}

	got := Annotate(websites, incidents, now, 0)

	g := got[0]
	if !g.UserReported || *g.IncidentType != domain.IncidentPartial || *g.ReportCount != 5 || !g.ReportTime.Equal(ago(time.Hour)) {
		t.Fatalf("google not annotated from latest incident: %+v", g)
	}
	if g.Status != domain.StatusUp {
		t.Fatalf("stored status must not change, got %s", g.Status)
	}
	if got[1].UserReported {
		t.Fatalf("slow incidents must not annotate: %+v", got[1])
	}
	if websites[0].UserReported {
		t.Fatal("input slice was mutated")
	}
}

func TestAnnotate_HostnameFallbackIgnoresWWW(t *testing.T) {
	websites := []domain.Website{{ID: "w1", Name: "site", URL: "https://example.com", Status: domain.StatusUp}}
	incidents := []domain.Incident{
		{ID: "a", WebsiteID: "other", WebsiteURL: "https://www.example.com/path", Type: domain.IncidentDown, Timestamp: ago(2 * time.Hour)},
		{ID: "b", WebsiteID: "other2", WebsiteURL: "http://example.com", Type: domain.IncidentDown, Timestamp: ago(30 * time.Minute), MeTooCount: 2},
	}
	got := Annotate(websites, incidents, now, DefaultWindow)[0]
	if !got.UserReported || *got.ReportCount != 3 {
		t.Fatalf("expected hostname match on latest incident, got %+v", got)
	}
}

func TestAnnotate_OutsideWindow(t *testing.T) {
	websites := []domain.Website{{ID: "google", URL: "https://google.com"}}
	incidents := []domain.Incident{{ID: "old", WebsiteID: "google", Type: domain.IncidentDown, Timestamp: ago(25 * time.Hour)}}
	if got := Annotate(websites, incidents, now, DefaultWindow)[0]; got.UserReported {
		t.Fatalf("incident older than window should be ignored: %+v", got)
	}
}

func fixtures() []domain.OutageEvent {
	websites := []domain.Website{
		{ID: "uuid-fb", Name: "facebook", URL: "https://facebook.com", Status: domain.StatusDown, LastChecked: ago(5 * time.Minute)},
		{ID: "uuid-g", Name: "google", URL: "https://google.com", Status: domain.StatusUp, LastChecked: ago(time.Minute)},
	}
	incidents := []domain.Incident{
		{ID: "i1", WebsiteID: "facebook", WebsiteURL: "https://facebook.com", Type: domain.IncidentDown, Timestamp: ago(10 * time.Minute), MeTooCount: 2, Location: &domain.Location{City: "Paris", Country: "France"}},
		{ID: "i2", WebsiteID: "x", WebsiteURL: "https://x.com", Type: domain.IncidentDown, Timestamp: ago(2 * time.Minute)},
		{ID: "i2", WebsiteID: "x", WebsiteURL: "https://x.com", Type: domain.IncidentDown, Timestamp: ago(2 * time.Minute)},
	}
	reports := []domain.OutageReport{
		{ID: "r1", WebsiteID: "facebook", Latitude: 40.7, Longitude: -74, Timestamp: ago(time.Hour), ReportCount: 10},
		{ID: "r2", WebsiteID: "reddit", Latitude: 52.5, Longitude: 13.4, Timestamp: ago(3 * time.Hour), ReportCount: 1},
	}
	return Events(websites, incidents, reports)
}

func TestEvents_SourcesAndDedup(t *testing.T) {
	events := fixtures()
	if len(events) != 5 {
		t.Fatalf("want 5 events, got %d: %+v", len(events), events)
	}
	kinds := map[domain.SourceKind]int{}
	for _, e := range events {
		kinds[e.SourceKind]++
	}
	if kinds[domain.SourceProbe] != 1 || kinds[domain.SourceUserReport] != 2 || kinds[domain.SourceGeoMarker] != 2 {
		t.Fatalf("unexpected source mix: %v", kinds)
	}
	for _, e := range events {
		if e.ID == "i1" {
			if e.ReportCount != 3 || !e.HasCoordinates() || e.Location.Latitude != 48.8566 {
				t.Fatalf("incident event not enriched: %+v", e)
			}
		}
		if e.SourceKind == domain.SourceProbe && e.WebsiteID != "facebook" {
			t.Fatalf("probe event should use website key, got %q", e.WebsiteID)
		}
	}
}

func TestRecent_NewestPerWebsite(t *testing.T) {
	got := Recent(fixtures(), 0)
	if len(got) != 3 {
		t.Fatalf("want 3 websites, got %d", len(got))
	}
	if got[0].WebsiteID != "x" || got[1].WebsiteID != "facebook" || got[2].WebsiteID != "reddit" {
		t.Fatalf("unexpected order: %s %s %s", got[0].WebsiteID, got[1].WebsiteID, got[2].WebsiteID)
	}
	if got[1].SourceKind != domain.SourceProbe {
		t.Fatalf("facebook's newest event is the probe, got %s", got[1].SourceKind)
	}
	if len(Recent(fixtures(), 1)) != 1 {
		t.Fatal("limit not applied")
	}
}

func TestTop_OrderedByEventCount(t *testing.T) {
	got := Top(fixtures(), 0)
	if got[0].WebsiteID != "facebook" || got[0].EventCount != 3 || got[0].ReportCount != 13 {
		t.Fatalf("unexpected top entry: %+v", got[0])
	}
	if got[1].WebsiteID != "reddit" || got[2].WebsiteID != "x" {
		t.Fatalf("tie should break on report count: %+v", got)
	}
}

func TestMarkers(t *testing.T) {
	for _, e := range Markers(fixtures()) {
		if !e.HasCoordinates() {
			t.Fatalf("marker without coordinates: %+v", e)
		}
	}
	if n := len(Markers(fixtures())); n != 3 {
		t.Fatalf("want 3 markers, got %d", n)
	}
}
