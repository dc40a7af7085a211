// Package events carries table change notifications between the
// persistence gateway and its passive consumers (live stream, monitor).
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TableWebsites      = "websites"
	TableIncidents     = "incidents"
	TableOutageReports = "outage_reports"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Event struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Broker fans events out to subscribers. A subscription ends, and its
// channel is closed, when ctx is cancelled.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

const subscriberBuffer = 16

// Memory is an in-process broker. Slow subscribers miss events rather than
// block publishers.
type Memory struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan Event)}
}

func (m *Memory) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, nil
	}
	id := m.next
	m.next++
	ch := make(chan Event, subscriberBuffer)
	m.subs[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}
