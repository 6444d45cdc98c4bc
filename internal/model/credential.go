package model

import (
	"time"
)

// A Credential represents a database record binding a secret token to a user.
// The token itself is never stored, only its digest.
type Credential struct {
	Base `msgpack:",inline" storm:"inline"`

	UserID    string     `json:"user_id"              msgpack:"user_id"    storm:"index"`
	TokenHash string     `json:"-"                    msgpack:"token_hash" storm:"unique"`
	Revoked   bool       `json:"revoked"              msgpack:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" msgpack:"revoked_at"`
}

// Active returns true while the credential can still be used to authenticate.
func (c *Credential) Active() bool {
	return !c.Revoked
}
