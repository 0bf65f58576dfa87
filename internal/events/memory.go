package events

import (
	"context"
	"sort"
	"sync"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

// MemoryStore is an in-process event log for local development when no
// ClickHouse DSN is configured. It implements both Writer and
// engine.EventReader.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory event log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Write appends an event. Never blocks.
func (m *MemoryStore) Write(event *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
}

// Close is a no-op.
func (m *MemoryStore) Close() {}

// SourceEvents filters the log by employee, source, and window.
func (m *MemoryStore) SourceEvents(_ context.Context, employeeID string, source engine.Source, window engine.Window) ([]engine.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.Event
	for _, e := range m.events {
		if e.EmployeeID != employeeID || e.Source != string(source) || !inWindow(e, window) {
			continue
		}
		out = append(out, engine.Event{Type: e.Type, Timestamp: e.Timestamp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Signals aggregates raw signals over the window.
func (m *MemoryStore) Signals(_ context.Context, employeeID string, window engine.Window) (engine.RawSignals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sig engine.RawSignals
	for _, e := range m.events {
		if e.EmployeeID != employeeID || !inWindow(e, window) {
			continue
		}
		if e.Source == string(engine.SourceGit) && e.Type == TypeCommit {
			sig.CommitCount++
		}
		if e.Source == string(engine.SourceIAM) && e.Privileged {
			sig.PrivilegedIAMCount++
		}
		if e.Source == string(engine.SourceSIEM) {
			sig.SIEMAlertCount++
		}
		if e.OffHours {
			sig.OffHoursAccess = true
		}
		if e.LargeExport {
			sig.LargeExport = true
		}
		if e.Type == TypeTicketApproved {
			sig.ApprovedTicket = true
		}
	}
	return sig, nil
}

func inWindow(e Event, w engine.Window) bool {
	return e.Timestamp.After(w.Start) && !e.Timestamp.After(w.End)
}
