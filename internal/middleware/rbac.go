package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-timetable-api/internal/models"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
	"github.com/noah-isme/academic-timetable-api/pkg/response"
)

// RBAC enforces role-based access control for routes. SUPERADMIN passes every check.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed)+1)
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}
	allowedRoles[models.RoleSuperAdmin] = struct{}{}

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
	}
}

// RequireTimetableWriter admits the roles that may change bookings.
func RequireTimetableWriter() gin.HandlerFunc {
	return RBAC(models.RoleAdmin, models.RoleTimetabler)
}
