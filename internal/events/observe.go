package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo"
)

// Observe wraps a gateway so every successful write publishes a change event.
func Observe(gw repo.Gateway, pub Publisher, log *zap.Logger) repo.Gateway {
	return &observed{Gateway: gw, pub: pub, log: log}
}

type observed struct {
	repo.Gateway
	pub Publisher
	log *zap.Logger
}

func (o *observed) emit(ctx context.Context, table, op, id string) {
	e := Event{Table: table, Op: op, ID: id, At: time.Now().UTC()}
	if err := o.pub.Publish(ctx, e); err != nil {
		o.log.Warn("change_event_publish_error",
			zap.String("table", table),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (o *observed) CreateWebsite(ctx context.Context, w *domain.Website) error {
	if err := o.Gateway.CreateWebsite(ctx, w); err != nil {
		return err
	}
	o.emit(ctx, TableWebsites, OpInsert, w.ID)
	return nil
}

func (o *observed) UpdateWebsiteCheck(ctx context.Context, id string, status domain.Status, checkedAt time.Time, responseMS *int) error {
	if err := o.Gateway.UpdateWebsiteCheck(ctx, id, status, checkedAt, responseMS); err != nil {
		return err
	}
	o.emit(ctx, TableWebsites, OpUpdate, id)
	return nil
}

func (o *observed) SetWebsiteStatus(ctx context.Context, id string, status domain.Status) error {
	if err := o.Gateway.SetWebsiteStatus(ctx, id, status); err != nil {
		return err
	}
	o.emit(ctx, TableWebsites, OpUpdate, id)
	return nil
}

func (o *observed) ResetWebsiteStatuses(ctx context.Context, status domain.Status) (int64, error) {
	n, err := o.Gateway.ResetWebsiteStatuses(ctx, status)
	if err != nil {
		return n, err
	}
	o.emit(ctx, TableWebsites, OpUpdate, "")
	return n, nil
}

func (o *observed) CreateIncident(ctx context.Context, in *domain.Incident) error {
	if err := o.Gateway.CreateIncident(ctx, in); err != nil {
		return err
	}
	o.emit(ctx, TableIncidents, OpInsert, in.ID)
	return nil
}

func (o *observed) IncrementMeToo(ctx context.Context, id string) (*domain.Incident, error) {
	in, err := o.Gateway.IncrementMeToo(ctx, id)
	if err != nil {
		return nil, err
	}
	o.emit(ctx, TableIncidents, OpUpdate, id)
	return in, nil
}

func (o *observed) DeleteIncidents(ctx context.Context, before time.Time) (int64, error) {
	n, err := o.Gateway.DeleteIncidents(ctx, before)
	if err != nil {
		return n, err
	}
	if n > 0 {
		o.emit(ctx, TableIncidents, OpDelete, "")
	}
	return n, nil
}

func (o *observed) CreateOutageReport(ctx context.Context, r *domain.OutageReport) error {
	if err := o.Gateway.CreateOutageReport(ctx, r); err != nil {
		return err
	}
	o.emit(ctx, TableOutageReports, OpInsert, r.ID)
	return nil
}

func (o *observed) DeleteOutageReports(ctx context.Context, before time.Time) (int64, error) {
	n, err := o.Gateway.DeleteOutageReports(ctx, before)
	if err != nil {
		return n, err
	}
	if n > 0 {
		o.emit(ctx, TableOutageReports, OpDelete, "")
	}
	return n, nil
}
