package domain

import "time"

type OutageReport struct {
	ID              string    `json:"id" yaml:"id"`
	WebsiteID       string    `json:"websiteId" yaml:"website_id"`
	Latitude        float64   `json:"latitude" yaml:"latitude"`
	Longitude       float64   `json:"longitude" yaml:"longitude"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	Status          Status    `json:"status" yaml:"status"`
	LocationCity    string    `json:"locationCity,omitempty" yaml:"location_city"`
	LocationCountry string    `json:"locationCountry,omitempty" yaml:"location_country"`
	ReportCount     int       `json:"reportCount" yaml:"report_count"`
}

// SourceKind tags where an outage event came from.
type SourceKind string

const (
	SourceProbe      SourceKind = "probe"
	SourceUserReport SourceKind = "user-report"
	SourceGeoMarker  SourceKind = "geo-marker"
)

// OutageEvent is the reconciled view over probe results, incidents and
// outage reports.
type OutageEvent struct {
	ID           string        `json:"id"`
	WebsiteID    string        `json:"websiteId"`
	WebsiteURL   string        `json:"websiteUrl,omitempty"`
	SourceKind   SourceKind    `json:"sourceKind"`
	Status       Status        `json:"status"`
	IncidentType *IncidentType `json:"incidentType,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Location     *Location     `json:"location,omitempty"`
	ReportCount  int           `json:"reportCount"`
}

// HasCoordinates reports whether the event can be placed on a map.
func (e OutageEvent) HasCoordinates() bool {
	return e.Location != nil && (e.Location.Latitude != 0 || e.Location.Longitude != 0)
}

// WebsiteOutages summarizes the events of one website.
type WebsiteOutages struct {
	WebsiteID   string `json:"websiteId"`
	EventCount  int    `json:"eventCount"`
	ReportCount int    `json:"reportCount"`
}
