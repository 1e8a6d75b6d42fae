package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/cache"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"go.uber.org/zap"
)

// AuthMiddleware resolves the caller's identity from a Bearer token and puts
// the principal into the gin context. Requests without a valid token never
// reach the handlers behind it. tokens holds the logout denylist; a nil
// tokens store skips the revocation check.
func AuthMiddleware(cfg *config.Config, tokens cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			return
		}

		claims, err := utils.ParseToken(raw, &cfg.JWT)
		if err != nil {
			xerr.AbortWithError(c, http.StatusForbidden, xerr.TokenInvalidCode, "Invalid or malformed token: "+err.Error())
			return
		}

		if tokens != nil {
			revoked, err := tokens.Exists(c.Request.Context(), cache.RevokedTokenKey(raw))
			if err != nil {
				logger.Warn("Token revocation check failed", zap.Error(err))
			} else if revoked {
				xerr.AbortWithError(c, http.StatusUnauthorized, xerr.TokenInvalidCode, "Token has been revoked")
				return
			}
		}

		c.Set(utils.CtxUserIDKey, claims.UserID)
		c.Set(utils.CtxUsernameKey, claims.Username)
		c.Set(utils.CtxRoleKey, claims.Role)

		c.Next()
	}
}

// BearerToken extracts the raw token from the Authorization header, writing
// a 401 and aborting when the header is missing or malformed.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Authorization header is required")
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Invalid Authorization header format")
		return "", false
	}
	return parts[1], true
}

// RequireAdmin guards admin-only routes. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(utils.CtxRoleKey)
		if role != "admin" {
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.ForbiddenCode, "User is not authorized to access this page")
			return
		}
		c.Next()
	}
}
