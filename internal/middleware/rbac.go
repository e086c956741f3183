package middleware

import (
	"net/http"

	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// RequireRole rejects authenticated callers whose role differs from role.
// Must run after RequireAuth.
func RequireRole(role model.Role) gin.HandlerFunc {
	code := response.ErrForbidden
	switch role {
	case model.RoleStudent:
		code = response.ErrStudentAccessOnly
	case model.RoleTeacher:
		code = response.ErrTeacherAccessOnly
	}

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if claims.Role != role {
			response.AbortFail(c, http.StatusForbidden, code)
			return
		}
		c.Next()
	}
}
