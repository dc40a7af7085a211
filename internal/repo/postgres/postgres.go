package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo"
)

//go:embed schema.sql
var schemaSQL string

var _ repo.Gateway = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("postgres_schema_applied")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- WebsiteStore ----

const websiteCols = `id, url, name, status, last_checked, response_time`

func scanWebsite(row pgx.Row) (*domain.Website, error) {
	var (
		w           domain.Website
		status      string
		lastChecked *time.Time
		rt          *int32
	)
	if err := row.Scan(&w.ID, &w.URL, &w.Name, &status, &lastChecked, &rt); err != nil {
		return nil, err
	}
	w.Status = domain.Status(status)
	if lastChecked != nil {
		w.LastChecked = lastChecked.UTC()
	}
	if rt != nil {
		v := int(*rt)
		w.ResponseTimeMS = &v
	}
	return &w, nil
}

func (s *Store) ListWebsites(ctx context.Context, order repo.Order) ([]domain.Website, error) {
	q := `SELECT ` + websiteCols + ` FROM websites ORDER BY last_checked ASC NULLS FIRST, id`
	if order == repo.NewestCheckedFirst {
		q = `SELECT ` + websiteCols + ` FROM websites ORDER BY last_checked DESC NULLS LAST, id`
	}
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *Store) GetWebsite(ctx context.Context, id string) (*domain.Website, error) {
	w, err := scanWebsite(s.pool.QueryRow(ctx, `SELECT `+websiteCols+` FROM websites WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	return w, nil
}

func (s *Store) GetWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	w, err := scanWebsite(s.pool.QueryRow(ctx, `SELECT `+websiteCols+` FROM websites WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get website by url: %w", err)
	}
	return w, nil
}

func (s *Store) CreateWebsite(ctx context.Context, w *domain.Website) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	var lastChecked *time.Time
	if !w.LastChecked.IsZero() {
		lastChecked = &w.LastChecked
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO websites (id, url, name, status, last_checked, response_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.URL, w.Name, string(w.Status), lastChecked, w.ResponseTimeMS,
	)
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *Store) UpdateWebsiteCheck(ctx context.Context, id string, status domain.Status, checkedAt time.Time, responseMS *int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE websites SET status = $2, last_checked = $3, response_time = $4 WHERE id = $1`,
		id, string(status), checkedAt, responseMS,
	)
	if err != nil {
		return fmt.Errorf("update website check: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE websites SET status = $2, last_checked = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update website status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) ResetWebsiteStatuses(ctx context.Context, status domain.Status) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE websites SET status = $1`, string(status))
	if err != nil {
		return 0, fmt.Errorf("reset website statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- IncidentStore ----

const incidentCols = `id, website_id, website_url, type, timestamp, ip_address,
	location_city, location_country, me_too_count, related_incident_id`

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		in            domain.Incident
		typ           string
		city, country *string
		related       *string
	)
	if err := row.Scan(&in.ID, &in.WebsiteID, &in.WebsiteURL, &typ, &in.Timestamp, &in.IPAddress,
		&city, &country, &in.MeTooCount, &related); err != nil {
		return nil, err
	}
	in.Type = domain.IncidentType(typ)
	in.Timestamp = in.Timestamp.UTC()
	if city != nil || country != nil {
		in.Location = &domain.Location{City: deref(city), Country: deref(country)}
	}
	in.RelatedIncidentID = deref(related)
	return &in, nil
}

func (s *Store) CreateIncident(ctx context.Context, in *domain.Incident) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	var city, country *string
	if in.Location != nil {
		city, country = &in.Location.City, &in.Location.Country
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO incidents (`+incidentCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		in.ID, in.WebsiteID, in.WebsiteURL, string(in.Type), in.Timestamp, in.IPAddress,
		city, country, in.MeTooCount, nullable(in.RelatedIncidentID),
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	in, err := scanIncident(s.pool.QueryRow(ctx, `SELECT `+incidentCols+` FROM incidents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return in, nil
}

func (s *Store) IncrementMeToo(ctx context.Context, id string) (*domain.Incident, error) {
	in, err := scanIncident(s.pool.QueryRow(ctx,
		`UPDATE incidents SET me_too_count = me_too_count + 1 WHERE id = $1 RETURNING `+incidentCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment me too: %w", err)
	}
	return in, nil
}

func (s *Store) ListIncidents(ctx context.Context, f repo.IncidentFilter) ([]domain.Incident, error) {
	var (
		where []string
		args  []any
	)
	if f.WebsiteID != "" {
		args = append(args, f.WebsiteID)
		where = append(where, fmt.Sprintf("website_id = $%d", len(args)))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("timestamp >= $%d", len(args)))
	}

	q := `SELECT ` + incidentCols + ` FROM incidents`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY timestamp DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *Store) DeleteIncidents(ctx context.Context, before time.Time) (int64, error) {
	q, args := `DELETE FROM incidents`, []any{}
	if !before.IsZero() {
		q, args = `DELETE FROM incidents WHERE timestamp < $1`, []any{before}
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete incidents: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- OutageReportStore ----

func (s *Store) CreateOutageReport(ctx context.Context, r *domain.OutageReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outage_reports
		   (id, website_id, latitude, longitude, timestamp, status, location_city, location_country, report_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.WebsiteID, r.Latitude, r.Longitude, r.Timestamp, string(r.Status),
		nullable(r.LocationCity), nullable(r.LocationCountry), r.ReportCount,
	)
	if err != nil {
		return fmt.Errorf("insert outage report: %w", err)
	}
	return nil
}

func (s *Store) ListOutageReports(ctx context.Context, websiteID string) ([]domain.OutageReport, error) {
	q := `SELECT id, website_id, latitude, longitude, timestamp, status, location_city, location_country, report_count
	        FROM outage_reports`
	var args []any
	if websiteID != "" {
		q += ` WHERE website_id = $1`
		args = append(args, websiteID)
	}
	q += ` ORDER BY timestamp DESC, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list outage reports: %w", err)
	}
	defer rows.Close()

	var out []domain.OutageReport
	for rows.Next() {
		var (
			r             domain.OutageReport
			status        string
			city, country *string
		)
		if err := rows.Scan(&r.ID, &r.WebsiteID, &r.Latitude, &r.Longitude, &r.Timestamp, &status,
			&city, &country, &r.ReportCount); err != nil {
			return nil, fmt.Errorf("scan outage report: %w", err)
		}
		r.Status = domain.Status(status)
		r.Timestamp = r.Timestamp.UTC()
		r.LocationCity, r.LocationCountry = deref(city), deref(country)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOutageReports(ctx context.Context, before time.Time) (int64, error) {
	q, args := `DELETE FROM outage_reports`, []any{}
	if !before.IsZero() {
		q, args = `DELETE FROM outage_reports WHERE timestamp < $1`, []any{before}
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete outage reports: %w", err)
	}
	return tag.RowsAffected(), nil
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
