package audit

import (
	"context"
	"sync"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close flushes and closes the logger
	Close() error
}

// NopLogger discards all events
type NopLogger struct{}

// Log discards the event
func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

// Close is a no-op
func (NopLogger) Close() error { return nil }

// MemoryLogger keeps events in memory for tests and small deployments
type MemoryLogger struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemoryLogger creates an empty in-memory logger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log appends the event
func (l *MemoryLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (l *MemoryLogger) Events() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Event, len(l.events))
	copy(out, l.events)
	return out
}

// Close is a no-op for the memory logger
func (l *MemoryLogger) Close() error { return nil }
