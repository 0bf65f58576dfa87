package api

import "time"

// --- POST /v1/events ---

// EventReq is one behavioral event in an ingest batch. The payload is
// opaque collector-specific JSON; only the typed fields are validated.
type EventReq struct {
	EmployeeID  string    `json:"employee_id"`
	Source      string    `json:"source"`
	Type        string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Privileged  bool      `json:"privileged,omitempty"`
	OffHours    bool      `json:"off_hours,omitempty"`
	LargeExport bool      `json:"large_export,omitempty"`
	TicketRef   string    `json:"ticket_ref,omitempty"`
	Payload     string    `json:"payload,omitempty"`
}

// IngestRequest is the JSON body for POST /v1/events.
type IngestRequest struct {
	Events []EventReq `json:"events"`
}

// IngestResponse reports how many events were accepted for buffering.
type IngestResponse struct {
	RequestID string `json:"request_id"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
}

// --- POST /v1/recompute ---

// RecomputeResponse is the aggregate result of a recompute trigger.
// Per-employee profiles are fetched separately via the profile query.
type RecomputeResponse struct {
	RunID      string  `json:"run_id"`
	WindowDays int     `json:"window_days"`
	Total      int     `json:"total"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	DurationMs float64 `json:"duration_ms"`
}

// --- Profiles ---

// ProfileResp is the current risk profile for one employee.
type ProfileResp struct {
	EmployeeID    string             `json:"employee_id"`
	SubScores     map[string]float64 `json:"sub_scores"`
	Multiplier    float64            `json:"multiplier"`
	Pattern       *string            `json:"pattern"`
	Score         float64            `json:"overall_score"`
	Level         string             `json:"risk_level"`
	Frequency     string             `json:"training_frequency"`
	NotifyManager bool               `json:"notify_manager"`
	ComputedAt    time.Time          `json:"computed_at"`
}

// HistoryEntryResp is one immutable trend snapshot.
type HistoryEntryResp struct {
	Score        float64            `json:"overall_score"`
	SubScores    map[string]float64 `json:"sub_scores"`
	Multiplier   float64            `json:"multiplier"`
	Level        string             `json:"risk_level"`
	Frequency    string             `json:"training_frequency"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// HistoryResp is the oldest-first trend sequence for one employee.
type HistoryResp struct {
	EmployeeID string             `json:"employee_id"`
	Entries    []HistoryEntryResp `json:"entries"`
	Count      int                `json:"count"`
}

// HighRiskEntryResp joins a profile with employee identity.
type HighRiskEntryResp struct {
	EmployeeID string    `json:"employee_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Score      float64   `json:"overall_score"`
	Level      string    `json:"risk_level"`
	Frequency  string    `json:"training_frequency"`
	ComputedAt time.Time `json:"computed_at"`
}

// HighRiskResp lists profiles at or above the threshold, highest first.
type HighRiskResp struct {
	Threshold float64             `json:"threshold"`
	Count     int                 `json:"count"`
	Entries   []HighRiskEntryResp `json:"entries"`
}

// RecommendationResp names the training modules suggested for an employee.
type RecommendationResp struct {
	EmployeeID string             `json:"employee_id"`
	Modules    []string           `json:"recommended_modules"`
	Overall    float64            `json:"overall_score"`
	SubScores  map[string]float64 `json:"sub_scores"`
}

// --- Employees (onboarding ingestion) ---

// UpsertEmployeeReq is the JSON body for POST /api/risk/employees.
type UpsertEmployeeReq struct {
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	HiredAt    time.Time `json:"hired_at"`
}

// EmployeeResp is the stored employee record.
type EmployeeResp struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	HiredAt    time.Time `json:"hired_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
