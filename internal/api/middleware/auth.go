package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/redis"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// Context keys set by JWTAuth.
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxStudentID = "student_id"
	CtxTokenJTI  = "token_jti"
	CtxTokenExp  = "token_exp"
)

// JWTAuth verifies the Authorization: Bearer <token> access token and puts
// the acting identity on the context. Revoked tokens are rejected when Redis
// is available; without Redis the blacklist check is skipped.
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "token is invalid or expired")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, response.CodeUnauthorized, "wrong token type")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("token blacklist check failed, allowing", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, response.CodeUnauthorized, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxStudentID, claims.StudentID)
		c.Set(CtxTokenJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RoleAuth lets the request through only for one of allowedRoles.
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, response.CodeUnauthorized, "not authenticated")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, response.CodeForbidden, "insufficient role")
		c.Abort()
	}
}
