package models

import "time"

// User is the signed-in account as returned by /init and /auth/login.
//
// Notifications and UnreadCount carry the initial notification batch delivered with the user payload.
type User struct {
	ID            int64          `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	Avatar        string         `json:"avatar,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	UnreadCount   *int           `json:"unread_notifications_count,omitempty"`
}

// Session pairs a bearer token with the user it belongs to.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate requires a token and a user id.
func (s Session) Validate() error {
	if s.Token == "" {
		return errEmptyToken
	}
	if s.User.ID == 0 {
		return errMissingUser
	}
	return nil
}
