// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the access-control layer. Authenticate turns a signed
// token (cookie or bearer header) into a principal; RequireAuth and
// RequireRole gate routes on it:
//
//   - no principal, browser:    302 to /auth/login
//   - no principal, API client: 401 {"code":"unauthorized","message":"Unauthorized"}
//   - wrong role:               403 with the forbidden page (or JSON)
//
// Handlers must take user ids from PrincipalFrom only, never from the request.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/edupay/internal/auth"
	"github.com/tbourn/edupay/internal/domain"
)

const (
	// CookieName is the cookie holding the session token.
	CookieName = "token"
	// LoginPath is where unauthenticated browsers are sent.
	LoginPath = "/auth/login"

	ctxKeyPrincipal = "auth.principal"
	ctxKeyUserID    = "userID" // read by the rate limiter and access logs
)

// PrincipalResolver completes a verified principal, typically by checking the
// user still exists. auth.ErrUnknownPrincipal leaves the request
// unauthenticated; any other error ends it with a 500.
type PrincipalResolver func(ctx context.Context, p auth.Principal) (auth.Principal, error)

// Authenticate verifies the request token, if any, and stashes the principal.
// It never rejects a request by itself.
func Authenticate(tokens *auth.TokenManager, resolve PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c)
		if raw == "" {
			c.Next()
			return
		}
		p, err := tokens.Verify(raw)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			c.Next()
			return
		}
		if resolve != nil {
			if p, err = resolve(c.Request.Context(), p); err != nil {
				if errors.Is(err, auth.ErrUnknownPrincipal) {
					LoggerFrom(c).Warn().Err(err).Msg("principal not resolved")
					c.Next()
					return
				}
				LoggerFrom(c).Error().Err(err).Msg("principal lookup failed")
				AbortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
		}
		c.Set(ctxKeyPrincipal, p)
		c.Set(ctxKeyUserID, p.ID)
		c.Next()
	}
}

// TokenFromRequest returns the bearer token, falling back to the session
// cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// PrincipalFrom returns the authenticated principal.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// RequireAuth rejects unauthenticated requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); ok {
			c.Next()
			return
		}
		accessDenied.WithLabelValues("unauthenticated").Inc()
		if WantsHTML(c) {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "unauthorized",
			"message":    "Unauthorized",
		})
	}
}

// RequireRole rejects principals whose role is not role. Unauthenticated
// requests are handled as in RequireAuth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	requireAuth := RequireAuth()
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			requireAuth(c)
			return
		}
		if p.Role != role {
			accessDenied.WithLabelValues("wrong_role").Inc()
			LoggerFrom(c).Warn().Str("user_id", p.ID).Str("role", string(p.Role)).Str("required", string(role)).Msg("role mismatch")
			AbortWithError(c, http.StatusForbidden, "forbidden", "You do not have access to this page.")
			return
		}
		c.Next()
	}
}
