package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/events"
	"github.com/hamed0406/isitdownchecker/internal/metrics"
	"github.com/hamed0406/isitdownchecker/internal/repo"
)

var ErrStoreUnavailable = errors.New("store unavailable")

const (
	DefaultInterval     = 5 * time.Minute
	DefaultRefreshEvery = 10
)

// WebsiteLister is the slice of the gateway the monitor reads from.
type WebsiteLister interface {
	ListWebsites(ctx context.Context, order repo.Order) ([]domain.Website, error)
	Ping(ctx context.Context) error
}

// WebsiteChecker probes a URL and persists the outcome.
type WebsiteChecker interface {
	Check(ctx context.Context, url string) (*domain.Website, error)
}

// StatusSink receives one call per status transition.
type StatusSink interface {
	StatusChanged(ctx context.Context, ch domain.StatusChange)
}

// Monitor checks tracked websites one at a time, round-robin, on a fixed
// period.
type Monitor struct {
	Logger       *zap.Logger
	Websites     WebsiteLister
	Checker      WebsiteChecker
	Sink         StatusSink
	Interval     time.Duration
	RefreshEvery int

	ticking atomic.Bool
	skipped atomic.Uint64

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	list      []domain.Website
	gen       uint64
	idx       int
	advances  int
	lastKnown map[string]domain.Status
}

func NewMonitor(
	logger *zap.Logger,
	websites WebsiteLister,
	checker WebsiteChecker,
	sink StatusSink,
	interval time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		Logger:       logger,
		Websites:     websites,
		Checker:      checker,
		Sink:         sink,
		Interval:     interval,
		RefreshEvery: DefaultRefreshEvery,
		lastKnown:    map[string]domain.Status{},
	}
}

// Start loads the website list and begins ticking. It is a no-op when the
// monitor is already running and fails when the store does not answer.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.Websites.Ping(ctx); err != nil {
		m.Logger.Warn("monitor_start_declined", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	m.RefreshList(ctx)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.running = true
	m.cancel = cancel
	n := len(m.list)
	m.mu.Unlock()

	m.Logger.Info("monitor_started",
		zap.Duration("interval", m.Interval),
		zap.Int("websites", n),
	)
	go m.loop(loopCtx)
	return nil
}

func (m *Monitor) loop(ctx context.Context) {
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	// ticks outlive Stop: an in-flight probe still records its result
	tickCtx := context.WithoutCancel(ctx)

	// immediate pass
	go m.Tick(tickCtx)

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor_stopped")
			return
		case <-t.C:
			go m.Tick(tickCtx)
		}
	}
}

// Stop halts the timer. The website list is kept.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.cancel()
	m.cancel = nil
	m.running = false
}

// RefreshList reloads websites, oldest checked first. On error or an empty
// result the current list is kept.
func (m *Monitor) RefreshList(ctx context.Context) {
	list, err := m.Websites.ListWebsites(ctx, repo.OldestCheckedFirst)
	if err != nil {
		m.Logger.Warn("monitor_refresh_error", zap.Error(err))
		return
	}
	if len(list) == 0 {
		return
	}

	m.mu.Lock()
	m.list = list
	m.gen++
	if m.idx >= len(m.list) {
		m.idx = 0
	}
	m.mu.Unlock()

	m.Logger.Debug("monitor_list_refreshed", zap.Int("websites", len(list)))
}

// Tick checks the website at the cursor and advances. Overlapping ticks are
// skipped and counted.
func (m *Monitor) Tick(ctx context.Context) {
	if !m.ticking.CompareAndSwap(false, true) {
		n := m.skipped.Add(1)
		metrics.MonitorSkippedTicks.Inc()
		m.Logger.Warn("monitor_tick_skipped", zap.Uint64("skipped_total", n))
		return
	}
	defer m.ticking.Store(false)

	m.mu.Lock()
	if len(m.list) == 0 {
		m.mu.Unlock()
		return
	}
	idx, gen := m.idx, m.gen
	cur := m.list[idx]
	prev, ok := m.lastKnown[cur.ID]
	if !ok {
		prev = cur.Status
	}
	m.mu.Unlock()

	updated, err := m.Checker.Check(ctx, cur.URL)
	if err != nil || updated == nil {
		m.Logger.Warn("monitor_check_error",
			zap.String("website_id", cur.ID),
			zap.String("url", cur.URL),
			zap.Error(err),
		)
		m.advance(ctx, idx, gen, nil)
		return
	}

	if updated.Status != prev {
		metrics.StatusChanges.WithLabelValues(string(updated.Status)).Inc()
		m.Logger.Info("monitor_status_changed",
			zap.String("website_id", updated.ID),
			zap.String("url", updated.URL),
			zap.String("from", string(prev)),
			zap.String("to", string(updated.Status)),
		)
		if m.Sink != nil {
			m.Sink.StatusChanged(ctx, domain.StatusChange{
				Website: *updated,
				From:    prev,
				To:      updated.Status,
				At:      updated.LastChecked,
			})
		}
	}

	m.advance(ctx, idx, gen, updated)
}

// advance stores the probed website and moves the cursor past it. When the
// list was replaced while the probe ran, the entry is located by id and the
// cursor set by the refresh is kept.
func (m *Monitor) advance(ctx context.Context, idx int, gen uint64, updated *domain.Website) {
	m.mu.Lock()
	if updated != nil {
		m.lastKnown[updated.ID] = updated.Status
		if gen == m.gen && idx < len(m.list) && m.list[idx].ID == updated.ID {
			m.list[idx] = *updated
		} else {
			for i := range m.list {
				if m.list[i].ID == updated.ID {
					m.list[i] = *updated
					break
				}
			}
		}
	}
	if gen == m.gen && len(m.list) > 0 {
		m.idx = (idx + 1) % len(m.list)
	}
	m.advances++
	refresh := m.RefreshEvery > 0 && m.advances%m.RefreshEvery == 0
	m.mu.Unlock()

	if refresh {
		m.RefreshList(ctx)
	}
}

// Watch refreshes the list whenever a website is inserted. It returns when
// ctx is done or the subscription ends.
func (m *Monitor) Watch(ctx context.Context, broker events.Broker) error {
	ch, err := broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for e := range ch {
		if e.Table == events.TableWebsites && e.Op == events.OpInsert {
			m.RefreshList(ctx)
		}
	}
	return ctx.Err()
}

func (m *Monitor) Status() domain.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.MonitorStatus{
		IsRunning:    m.running,
		WebsiteCount: len(m.list),
		CurrentIndex: m.idx,
		SkippedTicks: m.skipped.Load(),
	}
}
