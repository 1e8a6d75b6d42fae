package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/middlewares"
	"github.com/iseelabs/isee/internal/pkg/cache"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
	"go.uber.org/zap"
)

// Register creates an account and sends the verification mail.
func Register(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		user, err := authService.Register(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusCreated, "Registered, check your mailbox for the verification link", user)
	}
}

// VerifyEmail consumes the token from the mailed verification link.
func VerifyEmail(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "token query parameter is required")
			return
		}
		user, err := authService.VerifyEmail(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Email verified", user)
	}
}

func Login(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		resp, err := authService.Login(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Login successful", resp)
	}
}

// Logout revokes the presented token. The token stays on the denylist
// until its own expiry, after which it is invalid anyway.
func Logout(cfg *config.Config, tokens cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := middlewares.BearerToken(c)
		if !ok {
			return
		}
		claims, err := utils.ParseToken(raw, &cfg.JWT)
		if err != nil {
			xerr.Error(c, http.StatusForbidden, xerr.TokenInvalidCode, "Invalid or malformed token: "+err.Error())
			return
		}
		if tokens != nil && claims.ExpiresAt != nil {
			if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
				if err := tokens.Set(c.Request.Context(), cache.RevokedTokenKey(raw), true, ttl); err != nil {
					logger.Warn("Failed to record revoked token", zap.Error(err))
					xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, xerr.ErrInternalServer.Error())
					return
				}
			}
		}
		xerr.Success(c, http.StatusOK, "Logged out", nil)
	}
}

// GetMe returns the authenticated user's own profile.
func GetMe(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		user, err := userService.GetUser(c.Request.Context(), principal.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", user)
	}
}

// GetUserByUsername returns a public profile with its videos and images.
func GetUserByUsername(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		user, err := userService.GetUserByUsername(c.Request.Context(), username)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", user)
	}
}

func ListUsers(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := userService.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", users)
	}
}

// UpdateOwnProfile lets the caller edit their own account.
func UpdateOwnProfile(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		var req services.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		user, err := userService.UpdateProfile(c.Request.Context(), principal, principal.UserID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Profile updated", user)
	}
}

// DeleteOwnProfile removes the caller's account with everything it owns.
func DeleteOwnProfile(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		if err := userService.DeleteUser(c.Request.Context(), principal, principal.UserID); err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Account deleted", nil)
	}
}

func UpdateUser(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req services.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		user, err := userService.UpdateProfile(c.Request.Context(), principal, id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Profile updated", user)
	}
}

// SetUserRole promotes or demotes an account, admin only.
func SetUserRole(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		user, err := userService.SetRole(c.Request.Context(), id, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Role updated", user)
	}
}

func DeleteUser(userService services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := userService.DeleteUser(c.Request.Context(), principal, id); err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "User deleted", nil)
	}
}
