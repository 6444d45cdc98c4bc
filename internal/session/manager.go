// Package session binds validated credentials to short-lived server-held
// sessions. Clients only ever hold the opaque access token minted here.
package session

import (
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/model"
	"github.com/akarpov/examtrainer/internal/secret"
	"github.com/pkg/errors"
)

// AccessTokenLength matches the entropy class of credential tokens.
const AccessTokenLength = 24

type (
	// A Manager manages sessions.
	Manager interface {
		// Authenticate validates a secret token and establishes a session.
		Authenticate(token, userAgent string) (*model.Session, error)
		// Validate resolves an access token to its live session. In sliding
		// mode the validity window is extended on each successful call.
		Validate(accessToken string) (*model.Session, error)
		// UserFromToken returns the user id bound to a live session.
		UserFromToken(accessToken string) (string, error)
		// Logout invalidates the session server-side, whatever its expiry.
		Logout(accessToken string) error
	}

	manager struct {
		db database.Client
		// Session params
		ttl     time.Duration
		sliding bool
	}
)

// NewManager returns a new manager. When sliding is set, sessions are
// permanent: each successful validation pushes the expiry forward by ttl.
func NewManager(db database.Client, ttl time.Duration, sliding bool) Manager {
	return &manager{
		db:      db,
		ttl:     ttl,
		sliding: sliding,
	}
}

func (m *manager) Authenticate(token, userAgent string) (*model.Session, error) {
	credential, err := secret.Verify(m.db, token)
	if err != nil {
		return nil, err
	}

	access, err := secret.Token(AccessTokenLength)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		UserID:      credential.UserID,
		AccessToken: access,
		ExpireAt:    time.Now().Add(m.ttl).UTC(),
		Permanent:   m.sliding,
		UserAgent:   userAgent,
	}

	if err = m.db.Save(session); err != nil {
		return nil, eterror.StoreUnavailable(err)
	}

	return session, nil
}

func (m *manager) Validate(accessToken string) (*model.Session, error) {
	if accessToken == "" {
		return nil, eterror.Unauthorized()
	}

	session, err := m.db.FindSessionByAccessToken(accessToken)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, eterror.Unauthorized()
		}
		return nil, eterror.StoreUnavailable(err)
	}

	if session.Expired(time.Now()) {
		// Lazy cleanup; an expired session is as good as none.
		if err := m.db.Delete(session); err != nil && !m.db.IsNotFound(err) {
			return nil, eterror.StoreUnavailable(err)
		}
		return nil, eterror.Unauthorized()
	}

	if session.Permanent {
		session.ExpireAt = time.Now().Add(m.ttl).UTC()
		if err := m.db.Save(session); err != nil {
			return nil, eterror.StoreUnavailable(err)
		}
	}

	return session, nil
}

func (m *manager) UserFromToken(accessToken string) (string, error) {
	session, err := m.Validate(accessToken)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

func (m *manager) Logout(accessToken string) error {
	session, err := m.db.FindSessionByAccessToken(accessToken)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil
		}
		return eterror.StoreUnavailable(err)
	}

	return errors.Wrap(m.db.Delete(session), "could not delete session")
}
