// Package sqlite is a single-file persistence adapter built on gorm and the
// pure Go modernc SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo"
)

var _ repo.Gateway = (*Store)(nil)

type websiteRow struct {
	ID           string     `gorm:"column:id;primaryKey"`
	URL          string     `gorm:"column:url;uniqueIndex;not null"`
	Name         string     `gorm:"column:name;not null;default:''"`
	Status       string     `gorm:"column:status;not null;default:unknown"`
	LastChecked  *time.Time `gorm:"column:last_checked;index"`
	ResponseTime *int       `gorm:"column:response_time"`
}

func (websiteRow) TableName() string { return "websites" }

type incidentRow struct {
	ID                string    `gorm:"column:id;primaryKey"`
	WebsiteID         string    `gorm:"column:website_id;index;not null"`
	WebsiteURL        string    `gorm:"column:website_url;not null"`
	Type              string    `gorm:"column:type;not null"`
	Timestamp         time.Time `gorm:"column:timestamp;index;not null"`
	IPAddress         string    `gorm:"column:ip_address;not null;default:''"`
	LocationCity      *string   `gorm:"column:location_city"`
	LocationCountry   *string   `gorm:"column:location_country"`
	MeTooCount        int       `gorm:"column:me_too_count;not null;default:0"`
	RelatedIncidentID *string   `gorm:"column:related_incident_id"`
}

func (incidentRow) TableName() string { return "incidents" }

type outageReportRow struct {
	ID              string    `gorm:"column:id;primaryKey"`
	WebsiteID       string    `gorm:"column:website_id;index;not null"`
	Latitude        float64   `gorm:"column:latitude;not null"`
	Longitude       float64   `gorm:"column:longitude;not null"`
	Timestamp       time.Time `gorm:"column:timestamp;index;not null"`
	Status          string    `gorm:"column:status;not null;default:down"`
	LocationCity    *string   `gorm:"column:location_city"`
	LocationCountry *string   `gorm:"column:location_country"`
	ReportCount     int       `gorm:"column:report_count;not null;default:1"`
}

func (outageReportRow) TableName() string { return "outage_reports" }

type Store struct {
	db  *gorm.DB
	sql *sql.DB
	log *zap.Logger
}

// Open creates (if needed) and migrates the database file at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	if err := db.AutoMigrate(&websiteRow{}, &incidentRow{}, &outageReportRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("sqlite_opened", zap.String("path", path))
	return &Store{db: db, sql: sqlDB, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sql.PingContext(ctx)
}

func (s *Store) Close() {
	if err := s.sql.Close(); err != nil {
		s.log.Warn("sqlite_close_error", zap.Error(err))
	}
}

// ---- WebsiteStore ----

func (r websiteRow) toDomain() domain.Website {
	w := domain.Website{
		ID:             r.ID,
		URL:            r.URL,
		Name:           r.Name,
		Status:         domain.Status(r.Status),
		ResponseTimeMS: r.ResponseTime,
	}
	if r.LastChecked != nil {
		w.LastChecked = r.LastChecked.UTC()
	}
	return w
}

func (s *Store) ListWebsites(ctx context.Context, order repo.Order) ([]domain.Website, error) {
	var rows []websiteRow
	q := s.db.WithContext(ctx).Order("last_checked IS NOT NULL, last_checked ASC, id")
	if order == repo.NewestCheckedFirst {
		q = s.db.WithContext(ctx).Order("last_checked IS NULL, last_checked DESC, id")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	out := make([]domain.Website, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) getWebsite(ctx context.Context, where string, arg any) (*domain.Website, error) {
	var row websiteRow
	err := s.db.WithContext(ctx).Where(where, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	w := row.toDomain()
	return &w, nil
}

func (s *Store) GetWebsite(ctx context.Context, id string) (*domain.Website, error) {
	return s.getWebsite(ctx, "id = ?", id)
}

func (s *Store) GetWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	return s.getWebsite(ctx, "url = ?", url)
}

func (s *Store) CreateWebsite(ctx context.Context, w *domain.Website) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	row := websiteRow{
		ID:           w.ID,
		URL:          w.URL,
		Name:         w.Name,
		Status:       string(w.Status),
		ResponseTime: w.ResponseTimeMS,
	}
	if !w.LastChecked.IsZero() {
		t := w.LastChecked.UTC()
		row.LastChecked = &t
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *Store) UpdateWebsiteCheck(ctx context.Context, id string, status domain.Status, checkedAt time.Time, responseMS *int) error {
	at := checkedAt.UTC()
	res := s.db.WithContext(ctx).Model(&websiteRow{}).Where("id = ?", id).Updates(map[string]any{
		"status":        string(status),
		"last_checked":  &at,
		"response_time": responseMS,
	})
	if res.Error != nil {
		return fmt.Errorf("update website check: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error {
	res := s.db.WithContext(ctx).Model(&websiteRow{}).Where("id = ?", id).Updates(map[string]any{
		"status":       string(status),
		"last_checked": time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update website status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) ResetWebsiteStatuses(ctx context.Context, status domain.Status) (int64, error) {
	res := s.db.WithContext(ctx).Model(&websiteRow{}).Where("1 = 1").Update("status", string(status))
	if res.Error != nil {
		return 0, fmt.Errorf("reset website statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ---- IncidentStore ----

func (r incidentRow) toDomain() domain.Incident {
	in := domain.Incident{
		ID:                r.ID,
		WebsiteID:         r.WebsiteID,
		WebsiteURL:        r.WebsiteURL,
		Type:              domain.IncidentType(r.Type),
		Timestamp:         r.Timestamp.UTC(),
		IPAddress:         r.IPAddress,
		MeTooCount:        r.MeTooCount,
		RelatedIncidentID: deref(r.RelatedIncidentID),
	}
	if r.LocationCity != nil || r.LocationCountry != nil {
		in.Location = &domain.Location{City: deref(r.LocationCity), Country: deref(r.LocationCountry)}
	}
	return in
}

func (s *Store) CreateIncident(ctx context.Context, in *domain.Incident) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	row := incidentRow{
		ID:                in.ID,
		WebsiteID:         in.WebsiteID,
		WebsiteURL:        in.WebsiteURL,
		Type:              string(in.Type),
		Timestamp:         in.Timestamp.UTC(),
		IPAddress:         in.IPAddress,
		MeTooCount:        in.MeTooCount,
		RelatedIncidentID: nullable(in.RelatedIncidentID),
	}
	if in.Location != nil {
		row.LocationCity = &in.Location.City
		row.LocationCountry = &in.Location.Country
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	var row incidentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	in := row.toDomain()
	return &in, nil
}

func (s *Store) IncrementMeToo(ctx context.Context, id string) (*domain.Incident, error) {
	res := s.db.WithContext(ctx).Model(&incidentRow{}).Where("id = ?", id).
		UpdateColumn("me_too_count", gorm.Expr("me_too_count + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("increment me too: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, repo.ErrNotFound
	}
	return s.GetIncident(ctx, id)
}

func (s *Store) ListIncidents(ctx context.Context, f repo.IncidentFilter) ([]domain.Incident, error) {
	q := s.db.WithContext(ctx).Model(&incidentRow{})
	if f.WebsiteID != "" {
		q = q.Where("website_id = ?", f.WebsiteID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		q = q.Where("type IN ?", types)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since.UTC())
	}
	q = q.Order("timestamp DESC, id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []incidentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	out := make([]domain.Incident, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteIncidents(ctx context.Context, before time.Time) (int64, error) {
	q := s.db.WithContext(ctx).Where("1 = 1")
	if !before.IsZero() {
		q = s.db.WithContext(ctx).Where("timestamp < ?", before.UTC())
	}
	res := q.Delete(&incidentRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete incidents: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ---- OutageReportStore ----

func (s *Store) CreateOutageReport(ctx context.Context, r *domain.OutageReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	row := outageReportRow{
		ID:              r.ID,
		WebsiteID:       r.WebsiteID,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Timestamp:       r.Timestamp.UTC(),
		Status:          string(r.Status),
		LocationCity:    nullable(r.LocationCity),
		LocationCountry: nullable(r.LocationCountry),
		ReportCount:     r.ReportCount,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert outage report: %w", err)
	}
	return nil
}

func (s *Store) ListOutageReports(ctx context.Context, websiteID string) ([]domain.OutageReport, error) {
	q := s.db.WithContext(ctx).Order("timestamp DESC, id")
	if websiteID != "" {
		q = q.Where("website_id = ?", websiteID)
	}
	var rows []outageReportRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list outage reports: %w", err)
	}
	out := make([]domain.OutageReport, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.OutageReport{
			ID:              r.ID,
			WebsiteID:       r.WebsiteID,
			Latitude:        r.Latitude,
			Longitude:       r.Longitude,
			Timestamp:       r.Timestamp.UTC(),
			Status:          domain.Status(r.Status),
			LocationCity:    deref(r.LocationCity),
			LocationCountry: deref(r.LocationCountry),
			ReportCount:     r.ReportCount,
		})
	}
	return out, nil
}

func (s *Store) DeleteOutageReports(ctx context.Context, before time.Time) (int64, error) {
	q := s.db.WithContext(ctx).Where("1 = 1")
	if !before.IsZero() {
		q = s.db.WithContext(ctx).Where("timestamp < ?", before.UTC())
	}
	res := q.Delete(&outageReportRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete outage reports: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
