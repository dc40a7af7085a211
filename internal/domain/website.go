package domain

import "time"

type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusUnknown:
		return true
	}
	return false
}

// StatusFromUp maps a probe outcome to a website status.
func StatusFromUp(up bool) Status {
	if up {
		return StatusUp
	}
	return StatusDown
}

type Website struct {
	ID             string        `json:"id"`
	URL            string        `json:"url"`
	Name           string        `json:"name"`
	Status         Status        `json:"status"`
	LastChecked    time.Time     `json:"lastChecked"`
	ResponseTimeMS *int          `json:"responseTime,omitempty"`
	UserReported   bool          `json:"userReported,omitempty"`
	IncidentType   *IncidentType `json:"incidentType,omitempty"`
	ReportCount    *int          `json:"reportCount,omitempty"`
	ReportTime     *time.Time    `json:"reportTimestamp,omitempty"`
}

// StatusChange is raised by the monitor when a probe flips a website's status.
type StatusChange struct {
	Website Website   `json:"website"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	At      time.Time `json:"at"`
}

// MonitorStatus is a read-only snapshot of the monitoring loop.
type MonitorStatus struct {
	IsRunning    bool   `json:"isRunning"`
	WebsiteCount int    `json:"websiteCount"`
	CurrentIndex int    `json:"currentIndex"`
	SkippedTicks uint64 `json:"skippedTicks"`
}
