package models

import "time"

// The user attached to an authenticated session.
type SessionUser struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// A server-side session. A nil User means the session is anonymous.
type Session struct {
	ID        string       `json:"id"`
	User      *SessionUser `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Returns a deep copy so callers never share the User pointer with a store.
func (s Session) Clone() *Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return &s
}
