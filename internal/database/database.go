package database

import (
	"github.com/akarpov/examtrainer/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique-constraint error.
		IsAlreadyExists(err error) bool

		CredentialInteraction
		SessionInteraction
		ProgressInteraction
	}

	// A CredentialInteraction defines all the methods used to interact with
	// credential records.
	CredentialInteraction interface {
		// RegisterCredential inserts a new credential. The token hash is
		// unique across all credentials, active or revoked.
		RegisterCredential(credential *model.Credential) error
		// FindCredentialByTokenHash returns the credential for the given
		// token digest.
		FindCredentialByTokenHash(hash string) (*model.Credential, error)
		// FindCredentialsByUserID returns all credentials for the given
		// user, revoked ones included.
		FindCredentialsByUserID(userID string) ([]*model.Credential, error)
		// FindCredentials returns all credentials, for administration.
		FindCredentials() ([]*model.Credential, error)
	}

	// A SessionInteraction defines all the methods used to interact with
	// session records.
	SessionInteraction interface {
		// FindSessionByAccessToken returns the session for the given
		// access token.
		FindSessionByAccessToken(token string) (*model.Session, error)
		// FindSessionsByUserID returns all sessions for the given user id.
		FindSessionsByUserID(userID string) ([]*model.Session, error)
	}

	// A ProgressInteraction defines all the methods used to interact with
	// progress records.
	ProgressInteraction interface {
		// FindProgress returns the record for the given (user, exam) pair.
		FindProgress(userID, examID string) (*model.Progress, error)
		// FindProgressByUserID returns all the user's records.
		FindProgressByUserID(userID string) ([]*model.Progress, error)
		// UpdateProgress loads the record for the given pair (or the
		// default one), applies fn and persists the result, all within a
		// single write transaction. Concurrent updates to the same pair are
		// serialized; a failing fn leaves the store untouched.
		UpdateProgress(userID, examID string, fn func(*model.Progress) error) (*model.Progress, error)
		// DeleteProgress removes the record for the given pair.
		DeleteProgress(userID, examID string) error
	}
)
