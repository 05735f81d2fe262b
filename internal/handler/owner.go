package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"movecar/internal/lifecycle"
	"movecar/internal/model"
	"movecar/internal/store"
)

// OwnerHandler serves owner registration and the admin endpoints guarded
// by the owner's admin token.
type OwnerHandler struct {
	owners   *store.OwnerStore
	sessions *store.SessionStore
	engine   *lifecycle.Engine
	logger   *slog.Logger
}

func NewOwnerHandler(owners *store.OwnerStore, sessions *store.SessionStore, engine *lifecycle.Engine, logger *slog.Logger) *OwnerHandler {
	return &OwnerHandler{owners: owners, sessions: sessions, engine: engine, logger: logger}
}

type createOwnerRequest struct {
	Name         string            `json:"name"`
	CarPlate     string            `json:"carPlate"`
	DefaultReply string            `json:"defaultReply"`
	PushChannel  model.PushChannel `json:"pushChannel"`
	PushConfig   model.PushConfig  `json:"pushConfig"`
}

// Create handles POST /api/owner. A bearer token is optional; when
// present and valid the new owner is linked to that account.
func (h *OwnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOwnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.PushChannel.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown push channel %q", req.PushChannel))
		return
	}
	if err := req.PushConfig.Validate(req.PushChannel); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	adminToken, err := store.NewAdminToken()
	if err != nil {
		h.logger.Error("generate admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create owner")
		return
	}

	owner := &model.Owner{
		UserID:       h.optionalUserID(r),
		Name:         req.Name,
		CarPlate:     strings.TrimSpace(req.CarPlate),
		DefaultReply: strings.TrimSpace(req.DefaultReply),
		PushChannel:  req.PushChannel,
		PushConfig:   req.PushConfig,
		AdminToken:   adminToken,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := h.owners.Create(owner); err != nil {
		h.logger.Error("create owner", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create owner")
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"id":         owner.ID,
		"adminToken": owner.AdminToken,
		"adminUrl":   fmt.Sprintf("/admin/%s?token=%s", owner.ID, owner.AdminToken),
		"qrcodeUrl":  fmt.Sprintf("/c/%s", owner.ID),
	})
}

// Get handles GET /api/owner/{id}. Anyone holding the share code sees
// only the public fields.
func (h *OwnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owners.Get(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get owner", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "owner not found")
		return
	}
	writeData(w, http.StatusOK, owner.Public())
}

// GetFull handles GET /api/owner/{id}/full?token=. The full record is
// returned with the admin token stripped.
func (h *OwnerHandler) GetFull(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.adminGate(w, r)
	if !ok {
		return
	}
	owner.AdminToken = ""
	writeData(w, http.StatusOK, owner)
}

type updateOwnerRequest struct {
	Name         *string            `json:"name"`
	CarPlate     *string            `json:"carPlate"`
	DefaultReply *string            `json:"defaultReply"`
	PushChannel  *model.PushChannel `json:"pushChannel"`
	PushConfig   *model.PushConfig  `json:"pushConfig"`
}

// Update handles PUT /api/owner/{id}?token=. Absent fields keep their
// current values.
func (h *OwnerHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.adminGate(w, r)
	if !ok {
		return
	}

	var req updateOwnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		owner.Name = name
	}
	if req.CarPlate != nil {
		owner.CarPlate = strings.TrimSpace(*req.CarPlate)
	}
	if req.DefaultReply != nil {
		owner.DefaultReply = strings.TrimSpace(*req.DefaultReply)
	}
	if req.PushChannel != nil {
		if !req.PushChannel.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown push channel %q", *req.PushChannel))
			return
		}
		owner.PushChannel = *req.PushChannel
	}
	if req.PushConfig != nil {
		owner.PushConfig = *req.PushConfig
	}
	if err := owner.PushConfig.Validate(owner.PushChannel); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner.UpdatedAt = time.Now().UnixMilli()
	if err := h.owners.Update(owner); err != nil {
		h.logger.Error("update owner", "owner_id", owner.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update owner")
		return
	}

	owner.AdminToken = ""
	writeData(w, http.StatusOK, owner)
}

// Delete handles DELETE /api/owner/{id}?token=.
func (h *OwnerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.adminGate(w, r)
	if !ok {
		return
	}
	if err := h.owners.Delete(owner.ID); err != nil {
		h.logger.Error("delete owner", "owner_id", owner.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete owner")
		return
	}
	writeMessage(w, http.StatusOK, "Owner deleted")
}

// TestPush handles POST /api/owner/{id}/test-push?token=. The push
// outcome is reported in the data payload, not the envelope status.
func (h *OwnerHandler) TestPush(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.adminGate(w, r)
	if !ok {
		return
	}
	result := h.engine.TestPush(r.Context(), owner)
	writeData(w, http.StatusOK, result)
}

// adminGate loads the owner and checks the admin token query parameter.
// On failure it writes the error response and returns ok=false.
func (h *OwnerHandler) adminGate(w http.ResponseWriter, r *http.Request) (*model.Owner, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "admin token required")
		return nil, false
	}

	owner, err := h.owners.Get(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get owner", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "owner not found")
		return nil, false
	}
	if owner.AdminToken != token {
		writeError(w, http.StatusForbidden, "invalid admin token")
		return nil, false
	}
	return owner, true
}

// optionalUserID resolves the bearer token to a user ID when one is
// present and valid. Registration works without an account, so a missing
// or stale token simply leaves the owner unlinked.
func (h *OwnerHandler) optionalUserID(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	sess, err := h.sessions.GetByToken(strings.TrimSpace(header[len(prefix):]))
	if err != nil || sess == nil {
		return ""
	}
	return sess.UserID
}
