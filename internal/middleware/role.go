package middleware

import (
	"net/http"
	"slices"

	"spacebooking/internal/domain"
	"spacebooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the token role is one of roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		if !slices.Contains(roles, domain.UserRole(role)) {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}

func ManagerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleManager, domain.RoleAdmin)
}
