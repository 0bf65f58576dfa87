package api

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kp7425/personalized-cyber/internal/events"
	"github.com/kp7425/personalized-cyber/internal/metrics"
)

// handleIngestEvents implements POST /v1/events: a batch of collector
// events buffered into the append-only event log. Fire-and-forget: the
// writer never blocks the request.
func (d *Dependencies) handleIngestEvents(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if len(req.Events) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "events is required"})
		return
	}

	requestID := uuid.New().String()
	accepted, rejected := 0, 0
	for _, ev := range req.Events {
		if ev.EmployeeID == "" || ev.Source == "" || ev.Type == "" || ev.Timestamp.IsZero() {
			rejected++
			d.Logger.Warn("rejecting malformed event",
				zap.String("request_id", requestID),
				zap.String("employee_id", ev.EmployeeID),
				zap.String("source", ev.Source),
				zap.String("event_type", ev.Type),
			)
			continue
		}
		d.Writer.Write(&events.Event{
			EmployeeID:  ev.EmployeeID,
			Source:      ev.Source,
			Type:        ev.Type,
			Timestamp:   ev.Timestamp.UTC(),
			Privileged:  ev.Privileged,
			OffHours:    ev.OffHours,
			LargeExport: ev.LargeExport,
			TicketRef:   ev.TicketRef,
			Payload:     ev.Payload,
		})
		metrics.EventIngested(ev.Source)
		accepted++
	}

	writeJSON(w, http.StatusAccepted, IngestResponse{
		RequestID: requestID,
		Accepted:  accepted,
		Rejected:  rejected,
	})
}
