// Package api exposes the engine's HTTP surface: collector ingest, the
// recompute trigger, and the profile/history/recommendation queries the
// presentation layer consumes.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kp7425/personalized-cyber/internal/engine"
	"github.com/kp7425/personalized-cyber/internal/events"
	"github.com/kp7425/personalized-cyber/internal/store"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store        *store.Store
	Orchestrator *engine.Orchestrator
	Writer       events.Writer
	Logger       *zap.Logger
	CacheTTL     time.Duration
	WindowDays   int    // default recompute window
	StaticKey    string // optional local-dev service key
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Trigger surface (service-key auth)
	mux.HandleFunc("POST /v1/events", deps.authMiddleware(deps.handleIngestEvents))
	mux.HandleFunc("POST /v1/recompute", deps.authMiddleware(deps.handleRecompute))
	mux.HandleFunc("POST /v1/service-keys", deps.authMiddleware(deps.handleCreateServiceKey))

	// Onboarding ingestion
	mux.HandleFunc("POST /api/risk/employees", deps.handleUpsertEmployee)
	mux.HandleFunc("GET /api/risk/employees/{employee_id}", deps.handleGetEmployee)

	// Profile and trend queries for the presentation layer
	mux.HandleFunc("GET /api/risk/profiles/{employee_id}", deps.handleGetProfile)
	mux.HandleFunc("GET /api/risk/profiles/{employee_id}/history", deps.handleListHistory)
	mux.HandleFunc("GET /api/risk/high-risk", deps.handleHighRisk)
	mux.HandleFunc("GET /api/risk/recommendations/{employee_id}", deps.handleRecommendations)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
