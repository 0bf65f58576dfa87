package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kp7425/personalized-cyber/internal/engine"
	"github.com/kp7425/personalized-cyber/internal/metrics"
)

// handleRecompute implements POST /v1/recompute. With ?employee_id= it
// rescores one employee; otherwise it runs the full batch and returns
// aggregate counters only.
func (d *Dependencies) handleRecompute(w http.ResponseWriter, r *http.Request) {
	windowDays := d.WindowDays
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "window_days must be a positive integer"})
			return
		}
		windowDays = n
	}
	window := engine.WindowEnding(time.Now().UTC(), windowDays)

	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		if err := d.Orchestrator.RecomputeOne(r.Context(), employeeID, window); err != nil {
			d.Logger.Error("single-employee recompute failed",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
			status := http.StatusUnprocessableEntity
			if errors.Is(err, engine.ErrStorage) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, ErrorResp{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, RecomputeResponse{
			WindowDays: windowDays,
			Total:      1,
			Succeeded:  1,
		})
		return
	}

	stats, err := d.Orchestrator.RecomputeAll(r.Context(), window)
	if err != nil {
		d.Logger.Error("batch recompute failed to start", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "recompute failed to start"})
		return
	}
	metrics.BatchFinished(stats.Duration)

	writeJSON(w, http.StatusOK, RecomputeResponse{
		RunID:      stats.RunID,
		WindowDays: windowDays,
		Total:      stats.Total,
		Succeeded:  stats.Succeeded,
		Failed:     stats.Failed,
		DurationMs: float64(stats.Duration) / float64(time.Millisecond),
	})
}
