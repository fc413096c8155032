package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/fundbridge/fundbridge/internal/models"
)

// respondError writes the failure envelope every endpoint shares.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondErrorDetail writes the failure envelope with a diagnostic detail
// field outside production. Secrets and signatures must never reach err.
func respondErrorDetail(c *gin.Context, status int, message string, err error, production bool) {
	if production || err == nil {
		respondError(c, status, message)
		return
	}
	c.JSON(status, gin.H{"success": false, "message": message, "detail": err.Error()})
}

// Context keys set by the authentication middleware.
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
	CtxEmail    = "userEmail"
	CtxFullName = "userFullName"
)

// currentUserID returns the authenticated user id, or 0 for guests.
func currentUserID(c *gin.Context) uint64 {
	if v, ok := c.Get(CtxUserID); ok {
		if id, okCast := v.(uint64); okCast {
			return id
		}
	}
	return 0
}

// currentRole returns the authenticated role, empty for guests.
func currentRole(c *gin.Context) models.Role {
	if v, ok := c.Get(CtxUserRole); ok {
		if role, okCast := v.(models.Role); okCast {
			return role
		}
	}
	return ""
}

// isAdmin reports whether the current identity carries the admin role.
func isAdmin(c *gin.Context) bool {
	return currentRole(c) == models.RoleAdmin
}

// userPayload converts a user model to the response shape shared by the auth
// endpoints. Password hashes and security counters are never included.
func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"fullName":        user.FullName,
		"email":           user.Email,
		"role":            user.Role,
		"profilePicture":  user.ProfilePicture,
		"isEmailVerified": user.IsEmailVerified,
		"createdAt":       user.CreatedAt,
	}
}
