package api

import (
	"net/http"

	"go.uber.org/zap"
)

// CreateKeyReq is the JSON body for POST /v1/service-keys.
type CreateKeyReq struct {
	Name string `json:"name"`
}

// CreateKeyResp returns the new key. The plaintext key is shown exactly
// once; only its bcrypt hash is stored.
type CreateKeyResp struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
}

// handleCreateServiceKey provisions a new service key for a collector or
// scheduler. Requires an existing valid key.
func (d *Dependencies) handleCreateServiceKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name is required"})
		return
	}
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "no key store configured"})
		return
	}

	key, plaintext, err := d.Store.CreateServiceKey(r.Context(), req.Name)
	if err != nil {
		d.Logger.Error("service key creation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "key creation failed"})
		return
	}

	d.Logger.Info("service key created",
		zap.String("name", key.Name),
		zap.String("key_prefix", key.KeyPrefix),
	)
	writeJSON(w, http.StatusCreated, CreateKeyResp{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		KeyPrefix: key.KeyPrefix,
	})
}
