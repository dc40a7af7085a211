package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends to every notifier and returns all failures combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Log writes notifications to the application log. It is the fallback
// channel when no external notifier is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, title, text string) error {
	l.Logger.Info("notification", zap.String("title", title), zap.String("text", text))
	return nil
}

// StatusSink receives website status transitions.
type StatusSink interface {
	StatusChanged(ctx context.Context, ch domain.StatusChange)
}

// Sinks fans a status change out to several sinks.
type Sinks []StatusSink

func (s Sinks) StatusChanged(ctx context.Context, ch domain.StatusChange) {
	for _, sink := range s {
		if sink != nil {
			sink.StatusChanged(ctx, ch)
		}
	}
}
