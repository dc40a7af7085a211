package domain

import "time"

type IncidentType string

const (
	IncidentDown         IncidentType = "down"
	IncidentSlow         IncidentType = "slow"
	IncidentIntermittent IncidentType = "intermittent"
	IncidentPartial      IncidentType = "partial"
	IncidentMeToo        IncidentType = "metoo"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentDown, IncidentSlow, IncidentIntermittent, IncidentPartial, IncidentMeToo:
		return true
	}
	return false
}

// IsOutage reports whether the type counts towards a website's outage picture.
func (t IncidentType) IsOutage() bool {
	return t == IncidentDown || t == IncidentPartial
}

type Location struct {
	City      string  `json:"city" yaml:"city"`
	Country   string  `json:"country" yaml:"country"`
	Latitude  float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude float64 `json:"longitude,omitempty" yaml:"longitude"`
}

type Incident struct {
	ID                string       `json:"id"`
	WebsiteID         string       `json:"websiteId"`
	WebsiteURL        string       `json:"websiteUrl"`
	Type              IncidentType `json:"type"`
	Timestamp         time.Time    `json:"timestamp"`
	IPAddress         string       `json:"ipAddress,omitempty"`
	Location          *Location    `json:"location,omitempty"`
	MeTooCount        int          `json:"meTooCount"`
	RelatedIncidentID string       `json:"relatedIncidentId,omitempty"`
}
