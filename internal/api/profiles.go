package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kp7425/personalized-cyber/internal/engine"
	"github.com/kp7425/personalized-cyber/internal/store"
)

// handleGetProfile implements GET /api/risk/profiles/{employee_id}.
func (d *Dependencies) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	employeeID := r.PathValue("employee_id")

	profile, err := d.Store.GetProfile(r.Context(), employeeID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "profile lookup failed"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "no risk profile for employee; recompute first"})
		return
	}

	writeJSON(w, http.StatusOK, profileResp(profile))
}

// handleListHistory implements
// GET /api/risk/profiles/{employee_id}/history?start=&end=. Entries come
// back oldest first for trend lines.
func (d *Dependencies) handleListHistory(w http.ResponseWriter, r *http.Request) {
	employeeID := r.PathValue("employee_id")

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -90)
	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "start must be RFC 3339"})
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "end must be RFC 3339"})
			return
		}
	}

	entries, err := d.Store.ListHistory(r.Context(), employeeID, start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "history lookup failed"})
		return
	}

	resp := HistoryResp{EmployeeID: employeeID, Entries: make([]HistoryEntryResp, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntryResp{
			Score:        e.Score,
			SubScores:    subScoresResp(e.SubScores),
			Multiplier:   e.Multiplier,
			Level:        e.Level,
			Frequency:    e.Frequency,
			CalculatedAt: e.CalculatedAt,
		})
	}
	resp.Count = len(resp.Entries)
	writeJSON(w, http.StatusOK, resp)
}

// handleHighRisk implements GET /api/risk/high-risk?threshold=.
func (d *Dependencies) handleHighRisk(w http.ResponseWriter, r *http.Request) {
	threshold := 0.7
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "threshold must be in [0,1]"})
			return
		}
		threshold = f
	}

	entries, err := d.Store.ListHighRisk(r.Context(), threshold)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "high-risk lookup failed"})
		return
	}

	resp := HighRiskResp{Threshold: threshold, Entries: make([]HighRiskEntryResp, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HighRiskEntryResp{
			EmployeeID: e.EmployeeID,
			Email:      e.Email,
			FullName:   e.FullName,
			Role:       e.Role,
			Score:      e.Score,
			Level:      e.Level,
			Frequency:  e.Frequency,
			ComputedAt: e.ComputedAt,
		})
	}
	resp.Count = len(resp.Entries)
	writeJSON(w, http.StatusOK, resp)
}

// handleRecommendations implements GET /api/risk/recommendations/{employee_id}.
func (d *Dependencies) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	employeeID := r.PathValue("employee_id")

	profile, err := d.Store.GetProfile(r.Context(), employeeID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "profile lookup failed"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "no risk profile for employee; recompute first"})
		return
	}

	writeJSON(w, http.StatusOK, RecommendationResp{
		EmployeeID: employeeID,
		Modules:    engine.RecommendModules(profile.SubScores),
		Overall:    profile.Score,
		SubScores:  subScoresResp(profile.SubScores),
	})
}

// handleUpsertEmployee implements POST /api/risk/employees.
func (d *Dependencies) handleUpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpsertEmployeeReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.ExternalID == "" || req.Email == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "external_id, email, and role are required"})
		return
	}

	emp, err := d.Store.UpsertEmployee(r.Context(), &store.Employee{
		ExternalID: req.ExternalID,
		Email:      req.Email,
		FullName:   req.FullName,
		Role:       req.Role,
		Department: req.Department,
		HiredAt:    req.HiredAt,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "employee upsert failed"})
		return
	}

	writeJSON(w, http.StatusOK, employeeResp(emp))
}

// handleGetEmployee implements GET /api/risk/employees/{employee_id}.
func (d *Dependencies) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := d.Store.GetEmployeeRecord(r.Context(), r.PathValue("employee_id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "employee lookup failed"})
		return
	}
	if emp == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "employee not found"})
		return
	}
	writeJSON(w, http.StatusOK, employeeResp(emp))
}

func profileResp(p *store.Profile) ProfileResp {
	var pattern *string
	if p.Pattern != "" {
		pattern = &p.Pattern
	}
	return ProfileResp{
		EmployeeID:    p.EmployeeID,
		SubScores:     subScoresResp(p.SubScores),
		Multiplier:    p.Multiplier,
		Pattern:       pattern,
		Score:         p.Score,
		Level:         p.Level,
		Frequency:     p.Frequency,
		NotifyManager: p.NotifyManager,
		ComputedAt:    p.ComputedAt,
	}
}

func employeeResp(e *store.Employee) EmployeeResp {
	return EmployeeResp{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		Email:      e.Email,
		FullName:   e.FullName,
		Role:       e.Role,
		Department: e.Department,
		HiredAt:    e.HiredAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func subScoresResp(subScores map[engine.Source]float64) map[string]float64 {
	out := make(map[string]float64, len(subScores))
	for src, score := range subScores {
		out[string(src)] = score
	}
	return out
}
