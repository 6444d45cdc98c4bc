package middlewares

import (
	"fmt"
	"net/http"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler is a middleware that formats rendered errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	switch err := errors.Cause(err).(type) {
	case *echo.HTTPError:
		logrus.WithField("internal", err.Internal).Error(err.Message)
		_ = c.JSON(err.Code, echo.Map{
			"error": echo.Map{
				"message": err.Message,
			},
		})
	case *eterror.Error:
		status := eterror.StatusCode(err)
		if status < 500 || status == http.StatusServiceUnavailable {
			_ = c.JSON(status, err)
			return
		}

		internal(err, c)
	default:
		internal(err, c)
	}
}

func internal(err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	logrus.Errorf("Error [%s]: %s", id, err.Error())

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"error": echo.Map{
			"message": fmt.Sprintf("Unexpected error (id: %s)", id),
		},
	})
}
