package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
)

// CallerFrom returns the identity stored by JWTAuth, or the zero Caller
// on public routes.
func CallerFrom(c echo.Context) policy.Caller {
    id, _ := c.Get(KeyUserID).(uint64)
    role, _ := c.Get(KeyRole).(string)
    return policy.Caller{ID: id, Role: model.Role(role)}
}

// userID renders the caller id for cache and rate-limit keys; "guest"
// when nobody is authenticated.
func userID(c echo.Context) string {
    if id, ok := c.Get(KeyUserID).(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
