package eterror_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, eterror.StatusCode(eterror.Unauthorized()))
	assert.Equal(t, http.StatusConflict, eterror.StatusCode(eterror.DuplicateToken()))
	assert.Equal(t, http.StatusInternalServerError, eterror.StatusCode(fmt.Errorf("plain")))
}

func TestUniformAuthPayload(t *testing.T) {
	// An attacker probing sessions must not be able to tell an invalid
	// credential from an expired session.
	assert.Equal(t, eterror.InvalidCredential(), eterror.Unauthorized())
}

func TestPredicatesThroughWrapping(t *testing.T) {
	err := errors.Wrap(eterror.Unauthorized(), "while validating session")
	assert.True(t, eterror.IsUnauthorized(err))
	assert.False(t, eterror.IsDuplicateToken(err))

	err = eterror.StoreUnavailable(fmt.Errorf("disk on fire"))
	assert.True(t, eterror.IsStoreUnavailable(err))
	assert.Equal(t, http.StatusServiceUnavailable, eterror.StatusCode(err))
}
