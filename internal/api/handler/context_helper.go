package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// MustGetUserID extracts user_id set by JWTAuth. On false a 401 has been
// written and the caller should return.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetRole extracts role set by JWTAuth.
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetStudentID extracts the caller's student id. Tokens of non-students
// carry none and get a 403.
func MustGetStudentID(c *gin.Context) (string, bool) {
	if _, ok := MustGetUserID(c); !ok {
		return "", false
	}
	s := c.GetString("student_id")
	if s == "" {
		response.Forbidden(c, response.CodeForbidden, "a student profile is required")
		return "", false
	}
	return s, true
}

// resolveStudentID returns the caller's own student id for students, or the
// explicitly requested one for instructors and admins once authz allows it.
// On false a response has been written.
func resolveStudentID(c *gin.Context, requested string, authz service.AttendanceService) (string, bool) {
	role, ok := MustGetRole(c)
	if !ok {
		return "", false
	}
	if role == jwt.RoleStudent {
		return MustGetStudentID(c)
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", false
	}
	if requested == "" {
		response.BadRequest(c, response.CodeValidation, "student_id is required")
		return "", false
	}
	if err := authz.AuthorizeStudentAccess(c.Request.Context(), userID, role, requested); err != nil {
		response.FromError(c, err)
		return "", false
	}
	return requested, true
}
