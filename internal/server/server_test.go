package server_test

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/secret"
	"github.com/akarpov/examtrainer/internal/server"
	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fastjson"
)

func TestRequestVersion(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRestrictedWithoutToken(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	for _, route := range []string{"/session", "/progress", "/progress/exam1"} {
		r.GET(route).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.Equal(t, "invalid-auth", tag(r.Body.Bytes()))
		})
	}
}

func TestRestrictedWithGarbageToken(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/session").
		SetHeader(gofight.H{"Authorization": "Bearer no-such-token"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.Equal(t, "invalid-auth", tag(r.Body.Bytes()))
		})
}

func setup() (engine *echo.Echo, ctrl server.IOC, r *gofight.RequestConfig, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "examtrainer.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename, time.Second)
	if err != nil {
		panic(err)
	}

	ctrl = server.IOC{
		Version:        "test",
		Database:       db,
		SessionTTL:     time.Hour,
		SessionSliding: false,
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl, gofight.New(), func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func issue(ctrl server.IOC, userID string) string {
	token, err := secret.Issue(ctrl.Database, userID)
	if err != nil {
		panic(err)
	}
	return token
}

func signIn(engine *echo.Echo, token string) (access string) {
	gofight.New().POST("/auth/sign_in").
		SetJSON(gofight.D{"secret": token}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			if r.Code != http.StatusOK {
				panic("sign in failed: " + r.Body.String())
			}

			v, err := fastjson.Parse(r.Body.String())
			if err != nil {
				panic(err)
			}
			access = string(v.GetStringBytes("session", "access_token"))
		})
	return access
}

func tag(body []byte) string {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		panic(err)
	}
	return string(v.GetStringBytes("error", "tag"))
}
