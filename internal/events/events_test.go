package events

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
	"github.com/hamed0406/isitdownchecker/internal/repo/memory"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestMemory_FanOutAndUnsubscribe(t *testing.T) {
	b := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	a, _ := b.Subscribe(ctx)
	c, _ := b.Subscribe(context.Background())

	_ = b.Publish(context.Background(), Event{Table: TableWebsites, Op: OpInsert, ID: "w1"})
	if e := recv(t, a); e.ID != "w1" || e.At.IsZero() {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e := recv(t, c); e.ID != "w1" {
		t.Fatalf("unexpected event: %+v", e)
	}

	cancel()
	select {
	case _, ok := <-a:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed after cancel")
	}

	_ = b.Close()
	if _, ok := <-c; ok {
		t.Fatalf("expected closed channel after Close")
	}
}

func TestMemory_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemory()
	_, _ = b.Subscribe(context.Background())
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = b.Publish(context.Background(), Event{Table: TableIncidents, Op: OpInsert})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
}

func TestObserve_PublishesWrites(t *testing.T) {
	b := NewMemory()
	ch, _ := b.Subscribe(context.Background())
	gw := Observe(memory.New(), b, zap.NewNop())
	ctx := context.Background()

	w := &domain.Website{URL: "https://example.com"}
	if err := gw.CreateWebsite(ctx, w); err != nil {
		t.Fatalf("CreateWebsite: %v", err)
	}
	if e := recv(t, ch); e.Table != TableWebsites || e.Op != OpInsert || e.ID != w.ID {
		t.Fatalf("unexpected event: %+v", e)
	}

	in := &domain.Incident{WebsiteID: "example", Type: domain.IncidentDown}
	_ = gw.CreateIncident(ctx, in)
	if e := recv(t, ch); e.Table != TableIncidents || e.Op != OpInsert {
		t.Fatalf("unexpected event: %+v", e)
	}
	if _, err := gw.IncrementMeToo(ctx, in.ID); err != nil {
		t.Fatalf("IncrementMeToo: %v", err)
	}
	if e := recv(t, ch); e.Op != OpUpdate || e.ID != in.ID {
		t.Fatalf("unexpected event: %+v", e)
	}

	// failed writes publish nothing
	if err := gw.SetWebsiteStatus(ctx, "missing", domain.StatusUp); err == nil {
		t.Fatalf("expected error for missing website")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event after failed write: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedis_PublishSubscribe(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping Redis integration test")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := NewRedis(ctx, url, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	ch, err := r.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := r.Publish(ctx, Event{Table: TableOutageReports, Op: OpInsert, ID: "r1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if e := recv(t, ch); e.ID != "r1" {
		t.Fatalf("unexpected event: %+v", e)
	}
}
