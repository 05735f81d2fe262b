// Package lifecycle drives move requests through their states and fans
// out push notifications and WebSocket events on each transition.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"movecar/internal/model"
	"movecar/internal/notify"
	"movecar/internal/store"
	"movecar/internal/websocket"
)

var (
	ErrOwnerNotFound     = errors.New("owner not found")
	ErrRequestNotFound   = errors.New("request not found")
	ErrNoLinkedAccount   = errors.New("owner has no linked account")
	ErrPhoneNotRequested = errors.New("phone has not been requested")
)

// defaultMessage is used at notification time when the requester left the
// message blank and the owner has no default reply configured.
const defaultMessage = "Please move your car as soon as possible."

// Engine coordinates stores, the push dispatcher, and the WebSocket hub.
type Engine struct {
	owners     *store.OwnerStore
	requests   *store.RequestStore
	users      *store.UserStore
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	baseURL    string
	logger     *slog.Logger
}

func NewEngine(owners *store.OwnerStore, requests *store.RequestStore, users *store.UserStore, dispatcher *notify.Dispatcher, hub *websocket.Hub, baseURL string, logger *slog.Logger) *Engine {
	return &Engine{
		owners:     owners,
		requests:   requests,
		users:      users,
		dispatcher: dispatcher,
		hub:        hub,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Create records a new move request for the owner. When the requester
// already shared a location the owner is notified immediately; otherwise
// the request stays pending until Notify is called.
func (e *Engine) Create(ctx context.Context, ownerID, message string, loc *model.Location) (*model.MoveRequest, error) {
	owner, err := e.owners.Get(ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}

	req := &model.MoveRequest{
		OwnerID:           ownerID,
		Message:           message,
		RequesterLocation: loc,
		Status:            model.StatusPending,
	}
	if err := e.requests.Create(req); err != nil {
		return nil, err
	}

	if loc != nil {
		e.notifyOwner(ctx, owner, req)
	}

	e.broadcast(req, string(req.Status))
	return req, nil
}

// Notify pushes the move request to its owner and marks it notified.
// Requests already past pending are returned unchanged, so retries and
// double-clicks never fire a second push.
func (e *Engine) Notify(ctx context.Context, id string) (*model.MoveRequest, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != model.StatusPending {
		return req, nil
	}

	owner, err := e.owners.Get(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}

	e.notifyOwner(ctx, owner, req)
	e.broadcast(req, string(req.Status))
	return req, nil
}

// Confirm records that the owner acknowledged the request and is on the
// way, optionally attaching the owner's location.
func (e *Engine) Confirm(id string, loc *model.Location) (*model.MoveRequest, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	req.Status = model.StatusConfirmed
	req.ConfirmedAt = time.Now().UnixMilli()
	if loc != nil {
		req.OwnerLocation = loc
	}
	if err := e.requests.Update(req); err != nil {
		return nil, err
	}

	e.broadcast(req, string(req.Status))
	return req, nil
}

// Complete marks the request finished. Either party may complete from
// any state.
func (e *Engine) Complete(id string) (*model.MoveRequest, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	req.Status = model.StatusCompleted
	req.CompletedAt = time.Now().UnixMilli()
	if err := e.requests.Update(req); err != nil {
		return nil, err
	}

	e.broadcast(req, string(req.Status))
	return req, nil
}

// RequestPhone asks the owner to share a callback number. The owner must
// have a linked account, since the number comes from it. Repeat calls
// are idempotent and do not push again. The returned bool reports whether
// a push went out on this call.
func (e *Engine) RequestPhone(ctx context.Context, id string) (*model.MoveRequest, bool, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, false, err
	}
	if req == nil {
		return nil, false, ErrRequestNotFound
	}
	if req.PhoneRequested {
		return req, false, nil
	}

	owner, err := e.owners.Get(req.OwnerID)
	if err != nil {
		return nil, false, err
	}
	if owner == nil {
		return nil, false, ErrOwnerNotFound
	}
	if owner.UserID == "" {
		return nil, false, ErrNoLinkedAccount
	}

	req.PhoneRequested = true
	if err := e.requests.Update(req); err != nil {
		return nil, false, err
	}

	result := e.dispatcher.Send(ctx, owner, notify.Message{
		Title: "Phone number requested",
		Body:  "The requester would like your phone number to coordinate. Open the link to allow or deny.",
		URL:   fmt.Sprintf("%s/auth/%s", e.baseURL, req.ID),
	})

	e.broadcast(req, "phone_requested")
	return req, result.Success, nil
}

// AuthorizePhone records the owner's answer to a phone request. Allowing
// copies the linked account's number onto the request so the requester
// can read it from the status endpoint.
func (e *Engine) AuthorizePhone(id string, authorize bool) (*model.MoveRequest, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if !req.PhoneRequested {
		return nil, ErrPhoneNotRequested
	}

	if authorize {
		owner, err := e.owners.Get(req.OwnerID)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, ErrOwnerNotFound
		}
		if owner.UserID == "" {
			return nil, ErrNoLinkedAccount
		}
		user, err := e.users.Get(owner.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrNoLinkedAccount
		}
		req.AuthorizedPhone = user.Phone
	}

	req.PhoneAuthorized = &authorize
	if err := e.requests.Update(req); err != nil {
		return nil, err
	}

	action := "phone_denied"
	if authorize {
		action = "phone_authorized"
	}
	e.broadcast(req, action)
	return req, nil
}

// Status returns the request together with the owner's display name.
func (e *Engine) Status(id string) (*model.MoveRequest, string, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, "", err
	}
	if req == nil {
		return nil, "", ErrRequestNotFound
	}

	owner, err := e.owners.Get(req.OwnerID)
	if err != nil {
		return nil, "", err
	}
	if owner == nil {
		return nil, "", ErrOwnerNotFound
	}
	return req, owner.Name, nil
}

// PhoneStatus returns the request plus whether its owner has a linked
// account, so the waiting page knows if asking for a number can succeed.
func (e *Engine) PhoneStatus(id string) (*model.MoveRequest, bool, error) {
	req, err := e.requests.Get(id)
	if err != nil {
		return nil, false, err
	}
	if req == nil {
		return nil, false, ErrRequestNotFound
	}

	owner, err := e.owners.Get(req.OwnerID)
	if err != nil {
		return nil, false, err
	}
	if owner == nil {
		return nil, false, ErrOwnerNotFound
	}
	return req, owner.UserID != "", nil
}

// TestPush sends a test notification over the owner's configured channel.
func (e *Engine) TestPush(ctx context.Context, owner *model.Owner) notify.Result {
	return e.dispatcher.Send(ctx, owner, notify.TestMessage())
}

// notifyOwner pushes the move request and stamps it notified. The status
// advances even when the push fails so the requester is not stuck
// retrying against a misconfigured channel.
func (e *Engine) notifyOwner(ctx context.Context, owner *model.Owner, req *model.MoveRequest) {
	result := e.dispatcher.Send(ctx, owner, notify.Message{
		Title: "Move car request",
		Body:  e.notificationBody(owner, req),
		URL:   fmt.Sprintf("%s/r/%s", e.baseURL, req.ID),
	})
	if !result.Success {
		e.logger.Warn("push failed, marking notified anyway", "request_id", req.ID, "channel", result.Channel, "error", result.Err)
	}

	req.Status = model.StatusNotified
	req.NotifiedAt = time.Now().UnixMilli()
	if err := e.requests.Update(req); err != nil {
		e.logger.Error("update request after notify", "request_id", req.ID, "error", err)
	}
}

func (e *Engine) notificationBody(owner *model.Owner, req *model.MoveRequest) string {
	msg := req.Message
	if msg == "" {
		msg = owner.DefaultReply
	}
	if msg == "" {
		msg = defaultMessage
	}

	body := "Message: " + msg
	if loc := req.RequesterLocation; loc != nil {
		body += fmt.Sprintf("\nLocation: %.6f, %.6f", loc.Lat, loc.Lng)
	}
	body += "\nTime: " + time.UnixMilli(req.CreatedAt).Format("2006-01-02 15:04:05")
	return body
}

func (e *Engine) broadcast(req *model.MoveRequest, action string) {
	e.hub.Broadcast(websocket.NewMessage("request", action, req.ID, map[string]any{
		"ownerId": req.OwnerID,
		"status":  string(req.Status),
	}))
}
