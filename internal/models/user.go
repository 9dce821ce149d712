package models

import "time"

// User is a registered account. Email is the tenant identifier that scopes
// medication records.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the locally persisted login state.
type Session struct {
	Email string
	Token string
}

// Active reports whether a user is logged in.
func (s Session) Active() bool {
	return s.Email != ""
}
