package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// TokenRevoker blacklists access token ids.
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler token lifecycle endpoints. Tokens are issued by the login
// service; this service can only revoke them.
type AuthHandler struct {
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthHandler creates an AuthHandler. revoker may be nil.
func NewAuthHandler(revoker TokenRevoker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{revoker: revoker, logger: logger}
}

// Logout revokes the caller's access token until it expires.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if h.revoker == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternal, "token revocation is unavailable")
		return
	}

	jti := c.GetString("token_jti")
	if jti == "" {
		response.BadRequest(c, response.CodeValidation, "token has no id")
		return
	}

	var ttl time.Duration
	if v, exists := c.Get("token_exp"); exists {
		if exp, ok := v.(time.Time); ok {
			ttl = time.Until(exp)
		}
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), jti, ttl); err != nil {
		h.logger.Error("token revocation failed", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
