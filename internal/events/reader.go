package events

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

// Reader provides the engine's read path over the behavioral_events
// table. It implements engine.EventReader; failures wrap
// engine.ErrStorage so the orchestrator knows they are retryable.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for scoring queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	conn, err := openClickHouse(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// SourceEvents returns (type, timestamp) pairs for one employee, source,
// and window, ordered by timestamp.
func (r *Reader) SourceEvents(ctx context.Context, employeeID string, source engine.Source, window engine.Window) ([]engine.Event, error) {
	rows, err := r.conn.Query(ctx,
		"SELECT event_type, timestamp FROM behavioral_events "+
			"WHERE employee_id = @employee_id AND source = @source "+
			"AND timestamp > @start AND timestamp <= @end "+
			"ORDER BY timestamp",
		clickhouse.Named("employee_id", employeeID),
		clickhouse.Named("source", string(source)),
		clickhouse.Named("start", window.Start),
		clickhouse.Named("end", window.End),
	)
	if err != nil {
		return nil, fmt.Errorf("SourceEvents: %w: %w", engine.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var out []engine.Event
	for rows.Next() {
		var ev engine.Event
		if err := rows.Scan(&ev.Type, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("SourceEvents scan: %w: %w", engine.ErrStorage, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SourceEvents rows: %w: %w", engine.ErrStorage, err)
	}
	return out, nil
}

// Signals aggregates the cross-source raw signals for one employee and
// window in a single query.
func (r *Reader) Signals(ctx context.Context, employeeID string, window engine.Window) (engine.RawSignals, error) {
	var (
		commits, privileged, alerts uint64
		offHours, largeExport       uint64
		approvedTickets             uint64
	)
	err := r.conn.QueryRow(ctx,
		"SELECT "+
			"countIf(source = 'git' AND event_type = @commit_type) AS commits, "+
			"countIf(source = 'iam' AND privileged = 1) AS privileged, "+
			"countIf(source = 'siem') AS alerts, "+
			"countIf(off_hours = 1) AS off_hours, "+
			"countIf(large_export = 1) AS large_export, "+
			"countIf(event_type = @ticket_type) AS approved_tickets "+
			"FROM behavioral_events "+
			"WHERE employee_id = @employee_id "+
			"AND timestamp > @start AND timestamp <= @end",
		clickhouse.Named("commit_type", TypeCommit),
		clickhouse.Named("ticket_type", TypeTicketApproved),
		clickhouse.Named("employee_id", employeeID),
		clickhouse.Named("start", window.Start),
		clickhouse.Named("end", window.End),
	).Scan(&commits, &privileged, &alerts, &offHours, &largeExport, &approvedTickets)
	if err != nil {
		return engine.RawSignals{}, fmt.Errorf("Signals: %w: %w", engine.ErrStorage, err)
	}

	return engine.RawSignals{
		CommitCount:        int(commits),
		PrivilegedIAMCount: int(privileged),
		SIEMAlertCount:     int(alerts),
		OffHoursAccess:     offHours > 0,
		LargeExport:        largeExport > 0,
		ApprovedTicket:     approvedTickets > 0,
	}, nil
}
