package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"movecar/internal/database"
	"movecar/internal/model"
	"movecar/internal/notify"
	"movecar/internal/store"
	"movecar/internal/websocket"
)

type fixture struct {
	engine *Engine
	owners *store.OwnerStore
	users  *store.UserStore
	pushes *atomic.Int64
}

// newFixture builds an engine over an in-memory database with a fake Bark
// server counting deliveries. The returned owner is wired to that server.
func newFixture(t *testing.T, barkStatus int) (*fixture, *model.Owner) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var pushes atomic.Int64
	bark := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if barkStatus == http.StatusOK {
			io.WriteString(w, `{"code":200,"message":"success"}`)
		} else {
			io.WriteString(w, `{"code":400,"message":"bad key"}`)
		}
	}))
	t.Cleanup(bark.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := store.NewKV(db)
	owners := store.NewOwnerStore(kv)
	requests := store.NewRequestStore(kv)
	users := store.NewUserStore(kv)
	hub := websocket.NewHub(logger)
	engine := NewEngine(owners, requests, users, notify.NewDispatcher(logger), hub, "http://example.com", logger)

	owner := &model.Owner{
		Name:        "Alex",
		CarPlate:    "ABC-1234",
		PushChannel: model.ChannelBark,
		PushConfig: model.PushConfig{
			Bark: &model.BarkConfig{ServerURL: bark.URL, Key: "devicekey"},
		},
	}
	if err := owners.Create(owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	return &fixture{engine: engine, owners: owners, users: users, pushes: &pushes}, owner
}

func linkUser(t *testing.T, f *fixture, owner *model.Owner, phone string) *model.User {
	t.Helper()
	user := &model.User{Phone: phone, PasswordHash: "x"}
	if err := f.users.Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	owner.UserID = user.ID
	if err := f.owners.Update(owner); err != nil {
		t.Fatalf("link owner: %v", err)
	}
	return user
}

func TestCreateWithLocationNotifiesImmediately(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)

	loc := &model.Location{Lat: 31.23, Lng: 121.47}
	req, err := f.engine.Create(context.Background(), owner.ID, "Blocking the gate", loc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if req.Status != model.StatusNotified {
		t.Errorf("status = %s, want notified", req.Status)
	}
	if req.NotifiedAt == 0 {
		t.Error("notifiedAt not stamped")
	}
	if got := f.pushes.Load(); got != 1 {
		t.Errorf("pushes = %d, want 1", got)
	}
}

func TestCreateWithoutLocationStaysPending(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)

	req, err := f.engine.Create(context.Background(), owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if req.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if got := f.pushes.Load(); got != 0 {
		t.Errorf("pushes = %d, want 0", got)
	}
}

func TestCreateUnknownOwner(t *testing.T) {
	f, _ := newFixture(t, http.StatusOK)

	_, err := f.engine.Create(context.Background(), "zzzzzz", "", nil)
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("err = %v, want ErrOwnerNotFound", err)
	}
}

func TestNotifyFiresOnce(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.engine.Notify(ctx, req.ID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Status != model.StatusNotified {
		t.Errorf("status = %s, want notified", got.Status)
	}
	if n := f.pushes.Load(); n != 1 {
		t.Errorf("pushes = %d, want 1", n)
	}

	// Second notify is a no-op; the owner is not pushed again.
	if _, err := f.engine.Notify(ctx, req.ID); err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if n := f.pushes.Load(); n != 1 {
		t.Errorf("pushes after retry = %d, want 1", n)
	}
}

func TestNotifyUnknownRequest(t *testing.T) {
	f, _ := newFixture(t, http.StatusOK)

	_, err := f.engine.Notify(context.Background(), "nosuchrequest")
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestPushFailureStillAdvances(t *testing.T) {
	f, owner := newFixture(t, http.StatusBadRequest)

	req, err := f.engine.Create(context.Background(), owner.ID, "", &model.Location{Lat: 1, Lng: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if req.Status != model.StatusNotified {
		t.Errorf("status = %s, want notified despite failed push", req.Status)
	}
}

func TestConfirmAndComplete(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()

	req, err := f.engine.Create(ctx, owner.ID, "", &model.Location{Lat: 1, Lng: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ownerLoc := &model.Location{Lat: 31.24, Lng: 121.48, Accuracy: 10}
	confirmed, err := f.engine.Confirm(req.ID, ownerLoc)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}
	if confirmed.ConfirmedAt == 0 {
		t.Error("confirmedAt not stamped")
	}
	if confirmed.OwnerLocation == nil || confirmed.OwnerLocation.Lat != 31.24 {
		t.Errorf("ownerLocation = %+v, want lat 31.24", confirmed.OwnerLocation)
	}

	done, err := f.engine.Complete(req.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CompletedAt == 0 {
		t.Error("completedAt not stamped")
	}
}

func TestCompleteFromPending(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done, err := f.engine.Complete(req.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
}

func TestRequestPhoneRequiresLinkedAccount(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _, err = f.engine.RequestPhone(ctx, req.ID)
	if !errors.Is(err, ErrNoLinkedAccount) {
		t.Fatalf("err = %v, want ErrNoLinkedAccount", err)
	}
}

func TestRequestPhoneIdempotent(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()
	linkUser(t, f, owner, "+14155550100")

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, dispatched, err := f.engine.RequestPhone(ctx, req.ID)
	if err != nil {
		t.Fatalf("request phone: %v", err)
	}
	if !got.PhoneRequested {
		t.Error("phoneRequested not set")
	}
	if !dispatched {
		t.Error("expected a push on first ask")
	}
	if n := f.pushes.Load(); n != 1 {
		t.Errorf("pushes = %d, want 1", n)
	}

	_, dispatched, err = f.engine.RequestPhone(ctx, req.ID)
	if err != nil {
		t.Fatalf("repeat request phone: %v", err)
	}
	if dispatched {
		t.Error("repeat ask must not push again")
	}
	if n := f.pushes.Load(); n != 1 {
		t.Errorf("pushes after repeat = %d, want 1", n)
	}
}

func TestAuthorizePhoneCopiesNumber(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()
	user := linkUser(t, f, owner, "+14155550123")

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Answering before anyone asked is rejected.
	if _, err := f.engine.AuthorizePhone(req.ID, true); !errors.Is(err, ErrPhoneNotRequested) {
		t.Fatalf("err = %v, want ErrPhoneNotRequested", err)
	}

	if _, _, err := f.engine.RequestPhone(ctx, req.ID); err != nil {
		t.Fatalf("request phone: %v", err)
	}

	got, err := f.engine.AuthorizePhone(req.ID, true)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got.PhoneAuthorized == nil || !*got.PhoneAuthorized {
		t.Error("phoneAuthorized not true")
	}
	if got.AuthorizedPhone != user.Phone {
		t.Errorf("authorizedPhone = %q, want %q", got.AuthorizedPhone, user.Phone)
	}
}

func TestAuthorizePhoneDenied(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()
	linkUser(t, f, owner, "+14155550199")

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := f.engine.RequestPhone(ctx, req.ID); err != nil {
		t.Fatalf("request phone: %v", err)
	}

	got, err := f.engine.AuthorizePhone(req.ID, false)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if got.PhoneAuthorized == nil || *got.PhoneAuthorized {
		t.Error("phoneAuthorized not false")
	}
	if got.AuthorizedPhone != "" {
		t.Errorf("authorizedPhone = %q, want empty", got.AuthorizedPhone)
	}
}

func TestStatusIncludesOwnerName(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)

	req, err := f.engine.Create(context.Background(), owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, name, err := f.engine.Status(req.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.ID != req.ID {
		t.Errorf("id = %s, want %s", got.ID, req.ID)
	}
	if name != "Alex" {
		t.Errorf("ownerName = %q, want Alex", name)
	}
}

func TestPhoneStatusReportsLink(t *testing.T) {
	f, owner := newFixture(t, http.StatusOK)
	ctx := context.Background()

	req, err := f.engine.Create(ctx, owner.ID, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, linked, err := f.engine.PhoneStatus(req.ID)
	if err != nil {
		t.Fatalf("phone status: %v", err)
	}
	if linked {
		t.Error("expected no linked account")
	}

	linkUser(t, f, owner, "+14155550111")

	_, linked, err = f.engine.PhoneStatus(req.ID)
	if err != nil {
		t.Fatalf("phone status: %v", err)
	}
	if !linked {
		t.Error("expected linked account")
	}
}
