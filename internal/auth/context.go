package auth

import "github.com/labstack/echo/v4"

// ContextUserIDKey is the echo context key under which the guard stores the
// authenticated user's id.
const ContextUserIDKey = "userID"

// UserIDFromContext returns the user id resolved by the JWT guard for this
// request, or false when the route was not guarded.
func UserIDFromContext(c echo.Context) (uint, bool) {
	id, ok := c.Get(ContextUserIDKey).(uint)
	return id, ok
}
