package model

// RequestStatus tracks where a move request is in its lifecycle.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusNotified  RequestStatus = "notified"
	StatusConfirmed RequestStatus = "confirmed"
	StatusCompleted RequestStatus = "completed"
)

// Location is a GPS coordinate pair attached to either party.
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// MoveRequest is an anonymous ask for an owner to move their car.
// Timestamps are Unix milliseconds. PhoneAuthorized is a tri-state:
// nil means the owner has not answered yet.
type MoveRequest struct {
	ID                string        `json:"id"`
	OwnerID           string        `json:"ownerId"`
	Message           string        `json:"message,omitempty"`
	RequesterLocation *Location     `json:"requesterLocation,omitempty"`
	OwnerLocation     *Location     `json:"ownerLocation,omitempty"`
	Status            RequestStatus `json:"status"`
	CreatedAt         int64         `json:"createdAt"`
	NotifiedAt        int64         `json:"notifiedAt,omitempty"`
	ConfirmedAt       int64         `json:"confirmedAt,omitempty"`
	CompletedAt       int64         `json:"completedAt,omitempty"`
	PhoneRequested    bool          `json:"phoneRequested,omitempty"`
	PhoneAuthorized   *bool         `json:"phoneAuthorized,omitempty"`
	AuthorizedPhone   string        `json:"authorizedPhone,omitempty"`
}
