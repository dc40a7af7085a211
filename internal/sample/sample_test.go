package sample

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

func TestLoad_Embedded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, err := Load(now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d.Websites) != 16 {
		t.Fatalf("want 16 websites, got %d", len(d.Websites))
	}

	down := map[string]bool{}
	for _, w := range d.Websites {
		if w.Status == domain.StatusDown {
			down[w.ID] = true
		}
		if !w.LastChecked.Before(now) {
			t.Fatalf("%s: lastChecked not in the past", w.ID)
		}
	}
	for _, id := range []string{"facebook", "x", "reddit", "att"} {
		if !down[id] {
			t.Fatalf("%s should be down in sample data", id)
		}
	}
	if len(down) != 4 {
		t.Fatalf("want 4 down websites, got %v", down)
	}

	if d.Websites[8].URL != "https://t-mobile.com" || d.Websites[15].URL != "https://zoom.us" {
		t.Fatalf("unexpected urls: %s %s", d.Websites[8].URL, d.Websites[15].URL)
	}
	if len(d.Reports) == 0 || d.Reports[0].Timestamp.IsZero() {
		t.Fatalf("reports not resolved: %+v", d.Reports)
	}
}

func TestReports_FilterByWebsite(t *testing.T) {
	for _, r := range Reports(time.Now(), "att") {
		if r.WebsiteID != "att" {
			t.Fatalf("unexpected report %+v", r)
		}
	}
	if len(Reports(time.Now(), "att")) != 2 {
		t.Fatal("want 2 att reports")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	data := []byte("websites:\n  - {id: example, url: https://example.com, status: bogus, checked_minutes_ago: 5}\n" +
		"reports:\n  - {website_id: example, minutes_ago: 30}\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ws := set.Websites(now)
	if len(ws) != 1 || ws[0].ID != "example" || ws[0].Status != domain.StatusUnknown {
		t.Fatalf("unexpected websites: %+v", ws)
	}
	if !ws[0].LastChecked.Equal(now.Add(-5 * time.Minute)) {
		t.Fatalf("age not resolved against now: %v", ws[0].LastChecked)
	}
	if reps := set.Reports(now, "example"); len(reps) != 1 || !reps[0].Timestamp.Equal(now.Add(-30*time.Minute)) {
		t.Fatalf("unexpected reports: %+v", reps)
	}
	if reps := set.Reports(now, "google"); len(reps) != 0 {
		t.Fatalf("seed file should replace the embedded reports: %+v", reps)
	}
}

func TestOpenFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("websites:\n  - {id: nourl}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatal("expected error")
	}
	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_RejectsMissingURL(t *testing.T) {
	if _, err := Parse([]byte("websites:\n  - {id: nourl}\n"), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
