package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/labstack/echo/v4"
)

// Brute-force defaults: five failed sign-ins from one address buy a
// fifteen-minute block.
const (
	MaxLoginAttempts = 5
	BlockDuration    = 15 * time.Minute
)

type (
	// A LoginLimiter counts failed sign-ins per client address and blocks
	// the address once the attempt budget is spent. A successful sign-in
	// clears the address.
	LoginLimiter struct {
		mu       sync.Mutex
		attempts map[string]*attempt

		max      int
		blockFor time.Duration
	}

	attempt struct {
		failures     int
		blockedUntil time.Time
	}
)

// NewLoginLimiter returns a limiter blocking an address for blockFor after
// max failed attempts.
func NewLoginLimiter(max int, blockFor time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string]*attempt),
		max:      max,
		blockFor: blockFor,
	}
}

// Middleware wraps the sign-in handler. Blocked addresses are rejected
// before the credential is even looked at; afterwards the handler's
// response status decides whether the address failed or cleared.
func (l *LoginLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if l.Blocked(ip) {
				return c.JSON(http.StatusTooManyRequests, eterror.TooManyAttempts())
			}

			err := next(c)
			if err != nil {
				// Rejections bubble up as errors; the response is only
				// rendered later by the error handler.
				if eterror.IsUnauthorized(err) {
					l.Fail(ip)
				}
				return err
			}

			switch c.Response().Status {
			case http.StatusUnauthorized:
				l.Fail(ip)
			case http.StatusOK:
				l.Clear(ip)
			}

			return nil
		}
	}
}

// Blocked returns true while the address is serving a block. An expired
// block resets the address's budget.
func (l *LoginLimiter) Blocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[ip]
	if !ok || a.blockedUntil.IsZero() {
		return false
	}

	if time.Now().Before(a.blockedUntil) {
		return true
	}

	delete(l.attempts, ip)
	return false
}

// Fail records a failed attempt and starts the block once the budget is
// spent.
func (l *LoginLimiter) Fail(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[ip]
	if !ok {
		a = &attempt{}
		l.attempts[ip] = a
	}

	a.failures++
	if a.failures >= l.max {
		a.blockedUntil = time.Now().Add(l.blockFor)
	}
}

// Clear forgets the address after a successful sign-in.
func (l *LoginLimiter) Clear(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.attempts, ip)
}
