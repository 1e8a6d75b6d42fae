package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/pkg/xerr"
)

// Context keys set by the auth middleware.
const (
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
	CtxRoleKey     = "role"
)

// Principal is the authenticated identity resolved by the auth guard.
type Principal struct {
	UserID   uint64
	Username string
	Role     string
}

func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}

// GetPrincipal extracts the authenticated principal from the gin context.
// When absent it writes a 401 response and returns ok=false; the caller
// should simply return.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	userID, exists := c.Get(CtxUserIDKey)
	if !exists {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Authentication required")
		return Principal{}, false
	}
	return Principal{
		UserID:   userID.(uint64),
		Username: c.GetString(CtxUsernameKey),
		Role:     c.GetString(CtxRoleKey),
	}, true
}
