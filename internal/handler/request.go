package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"movecar/internal/lifecycle"
	"movecar/internal/model"
)

// RequestHandler serves the move request lifecycle endpoints. Everything
// here is reachable without authentication; request IDs are unguessable
// and act as bearer capabilities.
type RequestHandler struct {
	engine *lifecycle.Engine
	logger *slog.Logger
}

func NewRequestHandler(engine *lifecycle.Engine, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{engine: engine, logger: logger}
}

type createRequestBody struct {
	OwnerID  string          `json:"ownerId"`
	Message  string          `json:"message"`
	Location *model.Location `json:"location"`
}

// Create handles POST /api/request.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	req, err := h.engine.Create(r.Context(), body.OwnerID, body.Message, body.Location)
	if err != nil {
		h.lifecycleError(w, err, "create request")
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"requestId":   req.ID,
		"waitingUrl":  fmt.Sprintf("/w/%s", req.ID),
		"status":      req.Status,
		"hasLocation": req.RequesterLocation != nil,
	})
}

type requestStatus struct {
	*model.MoveRequest
	OwnerName string `json:"ownerName"`
}

// Get handles GET /api/request/{id}.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, ownerName, err := h.engine.Status(r.PathValue("id"))
	if err != nil {
		h.lifecycleError(w, err, "get request")
		return
	}
	writeData(w, http.StatusOK, requestStatus{MoveRequest: req, OwnerName: ownerName})
}

// Notify handles POST /api/request/{id}/notify. Used by waiting pages
// that acquired a location after creating the request.
func (h *RequestHandler) Notify(w http.ResponseWriter, r *http.Request) {
	req, err := h.engine.Notify(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lifecycleError(w, err, "notify request")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"status": req.Status})
}

type confirmBody struct {
	Location *model.Location `json:"location"`
}

// Confirm handles PUT /api/request/{id}/confirm. The body is optional.
func (h *RequestHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	req, err := h.engine.Confirm(r.PathValue("id"), body.Location)
	if err != nil {
		h.lifecycleError(w, err, "confirm request")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"status": req.Status, "confirmedAt": req.ConfirmedAt})
}

// Complete handles PUT /api/request/{id}/complete.
func (h *RequestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	req, err := h.engine.Complete(r.PathValue("id"))
	if err != nil {
		h.lifecycleError(w, err, "complete request")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"status": req.Status, "completedAt": req.CompletedAt})
}

// RequestPhone handles POST /api/request/{id}/request-phone.
func (h *RequestHandler) RequestPhone(w http.ResponseWriter, r *http.Request) {
	req, dispatched, err := h.engine.RequestPhone(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lifecycleError(w, err, "request phone")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"phoneRequested":  req.PhoneRequested,
		"phoneAuthorized": req.PhoneAuthorized,
		"notified":        dispatched,
	})
}

type authorizePhoneBody struct {
	Authorize bool `json:"authorize"`
}

// AuthorizePhone handles PUT /api/request/{id}/authorize-phone.
func (h *RequestHandler) AuthorizePhone(w http.ResponseWriter, r *http.Request) {
	var body authorizePhoneBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.engine.AuthorizePhone(r.PathValue("id"), body.Authorize)
	if err != nil {
		h.lifecycleError(w, err, "authorize phone")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"phoneAuthorized": req.PhoneAuthorized,
		"authorizedPhone": req.AuthorizedPhone,
	})
}

// PhoneStatus handles GET /api/request/{id}/phone-status.
func (h *RequestHandler) PhoneStatus(w http.ResponseWriter, r *http.Request) {
	req, linked, err := h.engine.PhoneStatus(r.PathValue("id"))
	if err != nil {
		h.lifecycleError(w, err, "phone status")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"hasLinkedAccount": linked,
		"phoneRequested":   req.PhoneRequested,
		"phoneAuthorized":  req.PhoneAuthorized,
		"authorizedPhone":  req.AuthorizedPhone,
	})
}

func (h *RequestHandler) lifecycleError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, lifecycle.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "request not found or expired")
	case errors.Is(err, lifecycle.ErrOwnerNotFound):
		writeError(w, http.StatusNotFound, "owner not found")
	case errors.Is(err, lifecycle.ErrNoLinkedAccount):
		writeError(w, http.StatusBadRequest, "owner has no linked account")
	case errors.Is(err, lifecycle.ErrPhoneNotRequested):
		writeError(w, http.StatusBadRequest, "phone has not been requested")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
