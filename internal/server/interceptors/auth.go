package interceptors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
	"github.com/kodacci/o-monitor-rest/internal/platform/rbac"
	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

// TokenHeader carries the access token. "Authorization: Bearer <token>" is accepted as well.
const TokenHeader = "x-auth-token"

const bearerPrefix = "bearer "

// IdentityResolver maps an access token to the caller identity; nil means anonymous.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, accessToken string) (*userdomain.Identity, error)
}

// ResolveIdentity stores the caller identity in the request context. It never rejects a request:
// a missing or bad token, or a failing user store, leaves the request anonymous.
func ResolveIdentity(resolver IdentityResolver, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http.auth")
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}
		identity, err := resolver.ResolveUser(c.Request.Context(), token)
		if err != nil {
			logger.Error("resolve user failed", "path", c.Request.URL.Path, "error", err)
		}
		if err == nil && identity != nil {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		}
		c.Next()
	}
}

// RequireAccess rejects anonymous callers with 401 and callers whose privilege does not allow
// the request method with 403.
func RequireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c.Request.Context())
		if identity == nil {
			httpx.Fail(c, apperr.Newf(apperr.CodeUnauthorized, "Unauthorized access to %s", c.Request.URL.Path))
			return
		}
		if !rbac.Allowed(c.Request.Method, identity) {
			httpx.Fail(c, apperr.Newf(apperr.CodeForbidden, "%s %s requires ADMIN privilege", c.Request.Method, c.Request.URL.Path))
			return
		}
		c.Next()
	}
}

// extractToken returns the x-auth-token header, falling back to a Bearer Authorization header.
func extractToken(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(TokenHeader)); v != "" {
		return v
	}
	v := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
