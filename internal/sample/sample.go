// Package sample holds the static data served in fallback mode.
package sample

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

//go:embed sample.yaml
var embedded []byte

type websiteEntry struct {
	ID                string        `yaml:"id"`
	URL               string        `yaml:"url"`
	Status            domain.Status `yaml:"status"`
	ResponseMS        *int          `yaml:"response_ms"`
	CheckedMinutesAgo int           `yaml:"checked_minutes_ago"`
}

type reportEntry struct {
	domain.OutageReport `yaml:",inline"`
	MinutesAgo          int `yaml:"minutes_ago"`
}

type file struct {
	Websites []websiteEntry `yaml:"websites"`
	Reports  []reportEntry  `yaml:"reports"`
}

// Data is the sample set with timestamps resolved against a reference time.
type Data struct {
	Websites []domain.Website
	Reports  []domain.OutageReport
}

// Load parses the embedded sample set.
func Load(now time.Time) (*Data, error) {
	return Parse(embedded, now)
}

func Parse(b []byte, now time.Time) (*Data, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse sample data: %w", err)
	}

	d := &Data{
		Websites: make([]domain.Website, 0, len(f.Websites)),
		Reports:  make([]domain.OutageReport, 0, len(f.Reports)),
	}
	for _, w := range f.Websites {
		if w.ID == "" || w.URL == "" {
			return nil, fmt.Errorf("sample website missing id or url: %+v", w)
		}
		status := w.Status
		if !status.Valid() {
			status = domain.StatusUnknown
		}
		d.Websites = append(d.Websites, domain.Website{
			ID:             w.ID,
			URL:            w.URL,
			Name:           w.ID,
			Status:         status,
			LastChecked:    now.Add(-time.Duration(w.CheckedMinutesAgo) * time.Minute),
			ResponseTimeMS: w.ResponseMS,
		})
	}
	for _, r := range f.Reports {
		rep := r.OutageReport
		if rep.Timestamp.IsZero() {
			rep.Timestamp = now.Add(-time.Duration(r.MinutesAgo) * time.Minute)
		}
		if rep.Status == "" {
			rep.Status = domain.StatusDown
		}
		if rep.ReportCount == 0 {
			rep.ReportCount = 1
		}
		d.Reports = append(d.Reports, rep)
	}
	return d, nil
}

// Set is a validated sample source. Relative ages are resolved on every
// read, so fallback data never goes stale.
type Set struct {
	raw []byte
}

// Embedded returns the built-in sample set.
func Embedded() *Set {
	return &Set{raw: embedded}
}

// OpenFile reads and validates a sample file, e.g. SEED_FILE.
func OpenFile(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample file: %w", err)
	}
	if _, err := Parse(b, time.Now()); err != nil {
		return nil, err
	}
	return &Set{raw: b}, nil
}

// Data resolves the set against now. The content was validated when the
// set was opened, so a parse failure here is a defect.
func (s *Set) Data(now time.Time) *Data {
	d, err := Parse(s.raw, now)
	if err != nil {
		panic(err)
	}
	return d
}

func (s *Set) Websites(now time.Time) []domain.Website {
	return s.Data(now).Websites
}

// Reports returns the outage reports, optionally for one website.
func (s *Set) Reports(now time.Time, websiteID string) []domain.OutageReport {
	d := s.Data(now)
	if websiteID == "" {
		return d.Reports
	}
	var out []domain.OutageReport
	for _, r := range d.Reports {
		if r.WebsiteID == websiteID {
			out = append(out, r)
		}
	}
	return out
}

// Websites returns the embedded popular list.
func Websites(now time.Time) []domain.Website {
	return Embedded().Websites(now)
}

// Reports returns the embedded outage reports, optionally for one website.
func Reports(now time.Time, websiteID string) []domain.OutageReport {
	return Embedded().Reports(now, websiteID)
}
