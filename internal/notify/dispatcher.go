package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

const (
	TitleDown      = "Website Down Alert"
	TitleRecovered = "Website Recovered"
)

type DispatcherConfig struct {
	AlertOnRecovery bool
	// Cooldown suppresses repeated down alerts for the same website. Zero
	// sends every transition. Recovery alerts bypass it.
	Cooldown time.Duration
}

// Dispatcher turns status transitions into notifications.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastDown map[string]time.Time
}

func NewDispatcher(n Notifier, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: n,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		lastDown: map[string]time.Time{},
	}
}

// Message returns the notification for a transition, or ok=false when the
// transition does not warrant one.
func Message(ch domain.StatusChange, alertOnRecovery bool) (title, text string, ok bool) {
	host := urlnorm.StripWWW(urlnorm.Hostname(ch.Website.URL))
	if host == "" {
		host = ch.Website.URL
	}
	switch {
	case ch.To == domain.StatusDown:
		return TitleDown, host + " is currently down.", true
	case ch.To == domain.StatusUp && ch.From == domain.StatusDown && alertOnRecovery:
		return TitleRecovered, host + " is back online.", true
	}
	return "", "", false
}

func (d *Dispatcher) StatusChanged(ctx context.Context, ch domain.StatusChange) {
	title, text, ok := Message(ch, d.cfg.AlertOnRecovery)
	if !ok {
		return
	}

	if ch.To == domain.StatusDown {
		now := d.now()
		d.mu.Lock()
		last, seen := d.lastDown[ch.Website.ID]
		if seen && d.cfg.Cooldown > 0 && now.Sub(last) < d.cfg.Cooldown {
			d.mu.Unlock()
			d.log.Debug("notify_cooldown", zap.String("website_id", ch.Website.ID))
			return
		}
		d.lastDown[ch.Website.ID] = now
		d.mu.Unlock()
	}

	if err := d.notifier.Send(ctx, title, withDetails(text, ch)); err != nil {
		d.log.Warn("notify_send_error",
			zap.String("website_id", ch.Website.ID),
			zap.String("title", title),
			zap.Error(err),
		)
		return
	}
	d.log.Info("notify_sent",
		zap.String("website_id", ch.Website.ID),
		zap.String("from", string(ch.From)),
		zap.String("to", string(ch.To)),
	)
}

func withDetails(text string, ch domain.StatusChange) string {
	var b strings.Builder
	b.WriteString(text)
	fmt.Fprintf(&b, "\nURL: %s", ch.Website.URL)
	if ch.Website.ResponseTimeMS != nil {
		fmt.Fprintf(&b, "\nLatency: %d ms", *ch.Website.ResponseTimeMS)
	}
	if !ch.At.IsZero() {
		fmt.Fprintf(&b, "\nChecked: %s", ch.At.Format(time.RFC3339))
	}
	return b.String()
}
