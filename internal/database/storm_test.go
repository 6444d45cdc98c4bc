package database_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndFindCredential(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	credential := &model.Credential{
		UserID:    "alice",
		TokenHash: "hash-1",
	}
	require.NoError(t, db.RegisterCredential(credential))
	assert.NotEmpty(t, credential.ID)
	assert.NotNil(t, credential.CreatedAt)

	found, err := db.FindCredentialByTokenHash("hash-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.UserID)

	_, err = db.FindCredentialByTokenHash("hash-unknown")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestRegisterCredentialDuplicate(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	require.NoError(t, db.RegisterCredential(&model.Credential{UserID: "alice", TokenHash: "hash-1"}))

	// Same hash, other user: still rejected.
	err := db.RegisterCredential(&model.Credential{UserID: "bob", TokenHash: "hash-1"})
	require.Error(t, err)
	assert.True(t, db.IsAlreadyExists(err))

	// Revoked credentials keep holding their hash.
	credential, err := db.FindCredentialByTokenHash("hash-1")
	require.NoError(t, err)
	credential.Revoked = true
	require.NoError(t, db.Save(credential))

	err = db.RegisterCredential(&model.Credential{UserID: "carol", TokenHash: "hash-1"})
	require.Error(t, err)
	assert.True(t, db.IsAlreadyExists(err))
}

func TestSessionRoundtrip(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	session := &model.Session{
		UserID:      "alice",
		AccessToken: "access-1",
		ExpireAt:    time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, db.Save(session))

	found, err := db.FindSessionByAccessToken("access-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.UserID)

	require.NoError(t, db.Delete(found))

	_, err = db.FindSessionByAccessToken("access-1")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestFindProgressMissing(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.FindProgress("alice", "exam1")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestUpdateProgress(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	record, err := db.UpdateProgress("alice", "exam1", func(p *model.Progress) error {
		p.Answers["q1"] = &model.Answer{Value: "B"}
		p.Status = model.StatusInProgress
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProgressKey("alice", "exam1"), record.Key)
	assert.False(t, record.LastUpdated.IsZero())

	// Second update sees the first one.
	record, err = db.UpdateProgress("alice", "exam1", func(p *model.Progress) error {
		require.Contains(t, p.Answers, "q1")
		p.Answers["q2"] = &model.Answer{Value: "C"}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, record.Answers, 2)

	// A failing mutation leaves the store untouched.
	boom := fmt.Errorf("boom")
	_, err = db.UpdateProgress("alice", "exam1", func(p *model.Progress) error {
		p.Answers["q3"] = &model.Answer{Value: "D"}
		return boom
	})
	assert.Equal(t, boom, err)

	record, err = db.FindProgress("alice", "exam1")
	require.NoError(t, err)
	assert.Len(t, record.Answers, 2)
}

// Fifty concurrent writers, each with a distinct question: no update may be
// lost, whatever the commit order.
func TestUpdateProgressConcurrent(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	const writers = 50

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()

			_, err := db.UpdateProgress("alice", "exam1", func(p *model.Progress) error {
				p.Answers[fmt.Sprintf("q%d", i)] = &model.Answer{Value: "A", Attempts: 1}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	record, err := db.FindProgress("alice", "exam1")
	require.NoError(t, err)
	require.Len(t, record.Answers, writers)
	for i := 0; i < writers; i++ {
		assert.Contains(t, record.Answers, fmt.Sprintf("q%d", i))
	}
}

func TestDeleteProgress(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.UpdateProgress("alice", "exam1", func(p *model.Progress) error {
		p.Status = model.StatusInProgress
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, db.DeleteProgress("alice", "exam1"))

	_, err = db.FindProgress("alice", "exam1")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))

	// Already gone.
	err = db.DeleteProgress("alice", "exam1")
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

// A record broken for one user must not take down another user's key.
func TestProgressFailureIsolation(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.UpdateProgress("alice", "exam1", func(p *model.Progress) error { return nil })
	require.NoError(t, err)
	_, err = db.UpdateProgress("bob", "exam1", func(p *model.Progress) error { return nil })
	require.NoError(t, err)

	require.NoError(t, db.DeleteProgress("alice", "exam1"))

	record, err := db.FindProgress("bob", "exam1")
	require.NoError(t, err)
	assert.Equal(t, "bob", record.UserID)
}

func setup(t *testing.T) (database.Client, func()) {
	tmpfile, err := os.CreateTemp("", "examtrainer.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename, time.Second)
	require.NoError(t, err)

	return db, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}
