// Package secret implements generation, issuance and verification of the
// opaque credentials handed to users out-of-band.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// TokenLength is the number of characters of a generated secret token.
// 32 characters over a 58-symbol alphabet carry ~187 bits of entropy.
const TokenLength = 32

// Base58 alphabet so tokens stay unambiguous when transcribed by hand.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ErrEntropySourceUnavailable reports that the platform's secure random
// source cannot be read. This is fatal; generation is never retried against
// a weaker source.
var ErrEntropySourceUnavailable = errors.New("secure entropy source unavailable")

// issueRetries bounds the number of fresh tokens tried when a digest
// collides with an already registered one.
const issueRetries = 3

// Generate returns a new secret token read from the platform CSPRNG.
func Generate() (string, error) {
	return Token(TokenLength)
}

// Token generates a random token of the given length.
func Token(length int) (string, error) {
	token := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(ErrEntropySourceUnavailable, err.Error())
		}
		token[i] = alphabet[int(n.Int64())]
	}

	return string(token), nil
}

// Hash returns the at-rest form of a token. Lookups go through the digest's
// unique index, so the plaintext is never stored nor compared byte by byte.
func Hash(token string) string {
	digest := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// Issue generates a token and registers it for the given user. The plaintext
// token is returned exactly once; only its digest is persisted.
func Issue(db database.Client, userID string) (string, error) {
	for i := 0; i < issueRetries; i++ {
		token, err := Generate()
		if err != nil {
			return "", err
		}

		err = db.RegisterCredential(&model.Credential{
			UserID:    userID,
			TokenHash: Hash(token),
		})
		if err == nil {
			return token, nil
		}
		if db.IsAlreadyExists(err) {
			continue
		}
		return "", eterror.StoreUnavailable(err)
	}

	return "", eterror.DuplicateToken()
}

// Verify resolves a presented token to its credential. Unknown and revoked
// tokens fail the same way.
func Verify(db database.Client, token string) (*model.Credential, error) {
	credential, err := db.FindCredentialByTokenHash(Hash(token))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, eterror.InvalidCredential()
		}
		return nil, eterror.StoreUnavailable(err)
	}

	if !credential.Active() {
		return nil, eterror.InvalidCredential()
	}

	return credential, nil
}

// Revoke soft-deletes all the user's credentials. Revoking an already
// revoked credential is a no-op; the records are kept for audit.
func Revoke(db database.Client, userID string) error {
	credentials, err := db.FindCredentialsByUserID(userID)
	if err != nil {
		if db.IsNotFound(err) {
			return errors.Errorf("no credential for user %q", userID)
		}
		return eterror.StoreUnavailable(err)
	}

	t := time.Now().UTC()
	for _, credential := range credentials {
		if credential.Revoked {
			continue
		}
		credential.Revoked = true
		credential.RevokedAt = &t
		if err := db.Save(credential); err != nil {
			return eterror.StoreUnavailable(err)
		}
	}

	return nil
}
