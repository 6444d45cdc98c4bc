package database

import (
	"time"

	"github.com/akarpov/examtrainer/internal/model"
	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&model.Credential{}); err != nil {
		return errors.Wrap(err, "could not init credential index")
	}

	if err := db.Init(&model.Session{}); err != nil {
		return errors.Wrap(err, "could not init session index")
	}

	err = db.Init(&model.Progress{})
	return errors.Wrap(err, "could not init progress index")
}

// StormOpen returns a new Storm database connection.
// The file lock acquisition is bounded by timeout so a competing process
// yields an error instead of blocking forever.
func StormOpen(database string, timeout time.Duration) (Client, error) {
	db, err := storm.Open(database, StormCodec, storm.BoltOptions(0600, &bolt.Options{
		Timeout: timeout,
	}))
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// IsAlreadyExists returns true if err is a unique-constraint error.
func (c *strm) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

// RegisterCredential inserts a new credential.
func (c *strm) RegisterCredential(credential *model.Credential) error {
	t := time.Now().UTC()
	credential.SetUpdatedAt(t)

	if credential.GetID() == "" {
		credential.SetID(uuid.Must(uuid.NewV4()).String())
		credential.SetCreatedAt(t)
	}

	// The unique index on TokenHash makes Save fail with ErrAlreadyExists
	// when the hash is already registered, active or revoked.
	return errors.Wrap(c.db.Save(credential), "could not save the credential")
}

// FindCredentialByTokenHash returns the credential for the given token digest.
func (c *strm) FindCredentialByTokenHash(hash string) (*model.Credential, error) {
	var credential model.Credential
	if err := c.db.One("TokenHash", hash, &credential); err != nil {
		return nil, errors.Wrap(err, "find credential by token hash")
	}
	return &credential, nil
}

// FindCredentialsByUserID returns all credentials for the given user.
func (c *strm) FindCredentialsByUserID(userID string) ([]*model.Credential, error) {
	credentials := make([]*model.Credential, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&credentials)
	if err != nil {
		return nil, errors.Wrap(err, "find credentials by user id")
	}
	return credentials, nil
}

// FindCredentials returns all credentials.
func (c *strm) FindCredentials() ([]*model.Credential, error) {
	credentials := make([]*model.Credential, 0)
	err := c.db.Select().OrderBy("CreatedAt").Find(&credentials)
	if err != nil {
		return nil, errors.Wrap(err, "find credentials")
	}
	return credentials, nil
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *strm) FindSessionByAccessToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("AccessToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by access token")
	}
	return &session, nil
}

// FindSessionsByUserID returns all the sessions for the given user id.
func (c *strm) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&sessions)
	if err != nil {
		return nil, errors.Wrap(err, "find sessions by user id")
	}
	return sessions, nil
}

// FindProgress returns the record for the given (user, exam) pair.
func (c *strm) FindProgress(userID, examID string) (*model.Progress, error) {
	var progress model.Progress
	if err := c.db.One("Key", model.ProgressKey(userID, examID), &progress); err != nil {
		return nil, errors.Wrap(err, "find progress by key")
	}
	return &progress, nil
}

// FindProgressByUserID returns all the user's records.
func (c *strm) FindProgressByUserID(userID string) ([]*model.Progress, error) {
	records := make([]*model.Progress, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&records)
	if err != nil {
		return nil, errors.Wrap(err, "find progress by user id")
	}
	return records, nil
}

// UpdateProgress applies a read-modify-write on the record for the given
// pair within a single write transaction. Bolt admits one writer at a time
// so updates to the same key never interleave.
func (c *strm) UpdateProgress(userID, examID string, fn func(*model.Progress) error) (*model.Progress, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	progress := model.NewProgress(userID, examID)
	err = tx.One("Key", progress.Key, progress)
	if err != nil && err != storm.ErrNotFound {
		return nil, errors.Wrap(err, "could not load progress")
	}

	if err = fn(progress); err != nil {
		return nil, err
	}

	t := time.Now().UTC()
	progress.LastUpdated = t
	progress.SetUpdatedAt(t)
	if progress.GetID() == "" {
		progress.SetID(uuid.Must(uuid.NewV4()).String())
		progress.SetCreatedAt(t)
	}

	if err = tx.Save(progress); err != nil {
		return nil, errors.Wrap(err, "could not save progress")
	}

	return progress, errors.Wrap(tx.Commit(), "could not commit progress")
}

// DeleteProgress removes the record for the given pair.
func (c *strm) DeleteProgress(userID, examID string) error {
	var progress model.Progress
	if err := c.db.One("Key", model.ProgressKey(userID, examID), &progress); err != nil {
		return errors.Wrap(err, "find progress for deletion")
	}
	return errors.Wrap(c.db.DeleteStruct(&progress), "could not delete progress")
}
