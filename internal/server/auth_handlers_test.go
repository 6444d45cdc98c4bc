package server_test

import (
	"net/http"
	"testing"

	"github.com/akarpov/examtrainer/internal/secret"
	"github.com/appleboy/gofight/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestLogin(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	token := issue(ctrl, "alice")

	r.POST("/auth/sign_in").
		SetJSON(gofight.D{"secret": token}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			require.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			require.NoError(t, err)
			access := string(v.GetStringBytes("session", "access_token"))
			assert.NotEmpty(t, access)
			// The session reference is unrelated to the secret.
			assert.NotEqual(t, token, access)
		})
}

func TestLoginUnknownSecret(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.POST("/auth/sign_in").
		SetJSON(gofight.D{"secret": "definitely-not-issued"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.Equal(t, "invalid-auth", tag(r.Body.Bytes()))
		})
}

func TestLoginRevokedSecret(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	token := issue(ctrl, "alice")
	require.NoError(t, secret.Revoke(ctrl.Database, "alice"))

	r.POST("/auth/sign_in").
		SetJSON(gofight.D{"secret": token}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			// Same response as for an unknown secret.
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.Equal(t, "invalid-auth", tag(r.Body.Bytes()))
		})

	// And no session came out of it.
	sessions, err := ctrl.Database.FindSessionsByUserID("alice")
	if err != nil {
		assert.True(t, ctrl.Database.IsNotFound(err))
		return
	}
	assert.Empty(t, sessions)
}

func TestLoginBruteForceBlock(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	token := issue(ctrl, "alice")

	// Burn the whole attempt budget with bad secrets.
	for i := 0; i < 5; i++ {
		r.POST("/auth/sign_in").
			SetJSON(gofight.D{"secret": "wrong-secret"}).
			Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
				assert.Equal(t, http.StatusUnauthorized, r.Code)
			})
	}

	// Even the valid secret is rejected while the address is blocked.
	r.POST("/auth/sign_in").
		SetJSON(gofight.D{"secret": token}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusTooManyRequests, r.Code)
			assert.Equal(t, "too-many-attempts", tag(r.Body.Bytes()))
		})

	// And no session came out of it.
	sessions, err := ctrl.Database.FindSessionsByUserID("alice")
	if err != nil {
		assert.True(t, ctrl.Database.IsNotFound(err))
		return
	}
	assert.Empty(t, sessions)
}

func TestLoginFailureCounterResetsOnSuccess(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	token := issue(ctrl, "alice")

	for round := 0; round < 2; round++ {
		// Four failures stay under the budget.
		for i := 0; i < 4; i++ {
			r.POST("/auth/sign_in").
				SetJSON(gofight.D{"secret": "wrong-secret"}).
				Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
					assert.Equal(t, http.StatusUnauthorized, r.Code)
				})
		}

		// A successful sign-in clears the address.
		r.POST("/auth/sign_in").
			SetJSON(gofight.D{"secret": token}).
			Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
				assert.Equal(t, http.StatusOK, r.Code)
			})
	}
}

func TestShowSession(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	access := signIn(engine, issue(ctrl, "alice"))

	r.GET("/session").
		SetHeader(gofight.H{"Authorization": "Bearer " + access}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			require.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			require.NoError(t, err)
			assert.Equal(t, "alice", string(v.GetStringBytes("user_id")))
			// The access token is not echoed back on session reads.
			assert.Nil(t, v.Get("session", "access_token"))
		})
}

func TestLogout(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	access := signIn(engine, issue(ctrl, "alice"))

	r.DELETE("/session").
		SetHeader(gofight.H{"Authorization": "Bearer " + access}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNoContent, r.Code)
		})

	// The session is gone for good, expiry notwithstanding.
	r.GET("/session").
		SetHeader(gofight.H{"Authorization": "Bearer " + access}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.Equal(t, "invalid-auth", tag(r.Body.Bytes()))
		})
}
