package model

// Owner is a registered car owner reachable through a push channel.
// AdminToken guards the management endpoints and is never exposed on
// public lookups.
type Owner struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId,omitempty"`
	Name         string      `json:"name"`
	CarPlate     string      `json:"carPlate,omitempty"`
	DefaultReply string      `json:"defaultReply,omitempty"`
	PushChannel  PushChannel `json:"pushChannel"`
	PushConfig   PushConfig  `json:"pushConfig"`
	AdminToken   string      `json:"adminToken,omitempty"`
	CreatedAt    int64       `json:"createdAt"`
	UpdatedAt    int64       `json:"updatedAt,omitempty"`
}

// OwnerPublic is the subset of owner fields safe to show to anyone
// holding a share code.
type OwnerPublic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CarPlate string `json:"carPlate,omitempty"`
}

// Public returns the shareable view of the owner.
func (o *Owner) Public() OwnerPublic {
	return OwnerPublic{ID: o.ID, Name: o.Name, CarPlate: o.CarPlate}
}
