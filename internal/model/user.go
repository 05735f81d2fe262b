package model

// User is a registered account identified by phone number. Owners link
// to a user so requesters can ask for a callback number.
type User struct {
	ID           string `json:"id"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
}

// UserSession is a bearer-token login session.
type UserSession struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}
