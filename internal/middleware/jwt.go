package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/session"
    "github.com/iliyamo/kmerpro-marketplace/internal/utils"
)

// Context keys set by JWTAuth.
const (
    KeyUserID   = "user_id"
    KeyRole     = "role"
    KeyJTI      = "jti"
    KeyTokenExp = "token_exp"
)

// JWTAuth validates a Bearer access token and stores its subject, role,
// jti and expiry in the context.  Tokens revoked by logout are rejected.
// A nil revoker skips the revocation check.
func JWTAuth(secret string, revoker session.TokenRevoker) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            if revoker != nil {
                revoked, err := revoker.IsRevoked(c.Request().Context(), claims.JTI)
                if err != nil {
                    // a revoked token must not pass while the store is unreachable
                    c.Logger().Errorf("revocation check: %v", err)
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session check unavailable"})
                }
                if revoked {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
                }
            }
            c.Set(KeyUserID, claims.UserID)
            c.Set(KeyRole, claims.Role)
            c.Set(KeyJTI, claims.JTI)
            c.Set(KeyTokenExp, claims.Exp)
            return next(c)
        }
    }
}
