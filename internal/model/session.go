package model

import (
	"time"
)

// A Session represents a database record.
// The access token is the only thing the client holds after sign-in;
// the secret token is never echoed back.
type Session struct {
	Base `msgpack:",inline" storm:"inline"`

	UserID      string    `json:"user_id"      msgpack:"user_id"      storm:"index"`
	AccessToken string    `json:"-"            msgpack:"access_token" storm:"unique"`
	ExpireAt    time.Time `json:"expire_at"    msgpack:"expire_at"`
	Permanent   bool      `json:"permanent"    msgpack:"permanent"`
	UserAgent   string    `json:"user_agent"   msgpack:"user_agent"`
}

// Expired returns true once the session's validity window has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpireAt.Before(now)
}
