package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"movecar/internal/auth"
	"movecar/internal/model"
	"movecar/internal/store"
)

// UserHandler serves account registration, login, and the endpoints
// behind the bearer-token middleware.
type UserHandler struct {
	manager *auth.Manager
	users   *store.UserStore
	owners  *store.OwnerStore
	logger  *slog.Logger
}

func NewUserHandler(manager *auth.Manager, users *store.UserStore, owners *store.OwnerStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{manager: manager, users: users, owners: owners, logger: logger}
}

type credentialsBody struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func sessionPayload(user *model.User, session *model.UserSession) map[string]any {
	return map[string]any{
		"user":      map[string]any{"id": user.ID, "phone": user.Phone},
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	}
}

// Register handles POST /api/user/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !auth.IsValidPhone(body.Phone) {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	if !auth.IsValidPassword(body.Password) {
		writeError(w, http.StatusBadRequest, "password must be 6 to 32 characters")
		return
	}

	user, session, err := h.manager.Register(body.Phone, body.Password)
	if err != nil {
		if errors.Is(err, store.ErrPhoneTaken) {
			writeError(w, http.StatusConflict, "phone number already registered")
			return
		}
		h.logger.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, "could not register")
		return
	}

	writeData(w, http.StatusCreated, sessionPayload(user, session))
}

// Login handles POST /api/user/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, session, err := h.manager.Login(body.Phone, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid phone or password")
			return
		}
		h.logger.Error("login user", "error", err)
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	writeData(w, http.StatusOK, sessionPayload(user, session))
}

// Logout handles POST /api/user/logout. Runs behind RequireUser, so the
// context always carries the token being discarded.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.manager.Logout(ac.Token); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "could not log out")
		return
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

// Me handles GET /api/user/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"phone":     user.Phone,
		"createdAt": user.CreatedAt,
	})
}

// Owners handles GET /api/user/owners, listing the account's owner codes
// without exposing push credentials or admin tokens.
func (h *UserHandler) Owners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.owners.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list owners", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := make([]map[string]any, 0, len(owners))
	for _, o := range owners {
		out = append(out, map[string]any{
			"id":          o.ID,
			"name":        o.Name,
			"carPlate":    o.CarPlate,
			"pushChannel": o.PushChannel,
			"createdAt":   o.CreatedAt,
		})
	}
	writeData(w, http.StatusOK, map[string]any{"owners": out})
}
