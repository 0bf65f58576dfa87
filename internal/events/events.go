// Package events owns the append-only behavioral event log: the write
// path used by collector ingest and the read path the scoring engine
// pulls windows from. Events are never mutated or deleted.
package events

import "time"

// Event type tags with cross-source meaning. Everything else in the
// event_type column is opaque to this package; the severity table decides
// what it contributes.
const (
	TypeCommit         = "commit"
	TypeTicketApproved = "ticket_approved"
)

// Event is one behavioral event as produced by an external collector.
// Only employee, source, type, and timestamp are validated; the payload
// is opaque source-specific JSON.
type Event struct {
	EmployeeID  string
	Source      string
	Type        string
	Timestamp   time.Time
	Privileged  bool   // IAM: privileged action
	OffHours    bool   // access outside working hours
	LargeExport bool   // bulk data export observed
	TicketRef   string // ticket covering the activity, if any
	Payload     string
}

// Writer is the interface for appending events. Write must never block
// the caller.
type Writer interface {
	Write(event *Event)
	Close()
}
