package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/model"
	"github.com/akarpov/examtrainer/internal/progress"
	"github.com/akarpov/examtrainer/internal/server/middlewares"
	"github.com/akarpov/examtrainer/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// An IOC is an Inversion Of Control pattern used to init the server package.
type IOC struct {
	Version  string
	Database database.Client
	// Session params
	SessionTTL     time.Duration
	SessionSliding bool
}

// EchoEngine instantiates the web server.
func EchoEngine(ctrl IOC) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	////////////
	// Router //
	////////////

	sessions := session.NewManager(ctrl.Database, ctrl.SessionTTL, ctrl.SessionSliding)

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Session(sessions))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		sessions: sessions,
	}
	limiter := middlewares.NewLoginLimiter(middlewares.MaxLoginAttempts, middlewares.BlockDuration)
	router.POST("/auth/sign_in", auth.Login, limiter.Middleware())
	restricted.GET("/session", auth.Show)
	restricted.DELETE("/session", auth.Logout)

	//
	// progress handlers
	//
	prgrss := &prgrss{
		service: progress.NewService(ctrl.Database),
	}
	restricted.GET("/progress", prgrss.List)
	restricted.GET("/progress/:exam", prgrss.Get)
	restricted.POST("/progress/:exam/answer", prgrss.SubmitAnswer)
	restricted.POST("/progress/:exam/mastered", prgrss.SetMastered)
	restricted.POST("/progress/:exam/complete", prgrss.Complete)
	restricted.DELETE("/progress/:exam", prgrss.Reset)

	return engine
}

// PrintRoutes prints the Echo engine exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) string {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(string)
	if ok {
		return user
	}
	return ""
}

func currentSession(c echo.Context) *model.Session {
	session, ok := c.Get(middlewares.CurrentSessionContextKey).(*model.Session)
	if ok {
		return session
	}
	return nil
}
