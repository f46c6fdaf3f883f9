package domain

import "time"

// Session is the proof of authentication issued by the capability source.
// The token is opaque to everything except the source itself.
type Session struct {
	Token     string
	TokenID   string
	Identity  string
	UserType  UserType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
