package server

import (
	"net/http"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/server/serializer"
	"github.com/akarpov/examtrainer/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// auth contains all authentication handlers.
type auth struct {
	sessions session.Manager
}

type loginParams struct {
	Secret string `json:"secret"`
}

///// Login
////
//

// Login authenticates a user with its secret token and establishes a
// session. The response carries the access token; the secret is never
// echoed back.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params loginParams
	if err := c.Bind(&params); err != nil {
		logrus.WithError(err).Warn("could not get login parameters")
		return c.JSON(http.StatusBadRequest, eterror.New("Could not get credentials."))
	}

	if params.Secret == "" {
		return c.JSON(http.StatusUnauthorized, eterror.InvalidCredential())
	}

	sess, err := h.sessions.Authenticate(params.Secret, c.Request().UserAgent())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session": serializer.Session(sess, true),
	})
}

///// Show
////
//

// Show renders the current session.
func (h *auth) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": currentUser(c),
		"session": serializer.Session(currentSession(c), false),
	})
}

///// Logout
////
//

// Logout terminates the current session, whatever its remaining validity.
func (h *auth) Logout(c echo.Context) error {
	sess := currentSession(c)
	if sess != nil {
		if err := h.sessions.Logout(sess.AccessToken); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}
