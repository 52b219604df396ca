package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dribsphire/BMADOJT-sub000/pkg/logger"
)

const requestIDKey = "request_id"

// requestIDMaxLen caps caller-supplied ids so they cannot flood the logs.
const requestIDMaxLen = 64

// RequestID reads X-Request-ID or mints a UUID. The id is echoed in the
// response header and becomes the correlation id of everything the request
// logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)
		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), rid))

		c.Next()
	}
}
