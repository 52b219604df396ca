package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/config"
	"github.com/Dribsphire/BMADOJT-sub000/internal/api/handler"
	"github.com/Dribsphire/BMADOJT-sub000/internal/api/middleware"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/redis"
)

// Setup builds the Gin engine. rdb may be nil; gatherer may be nil to
// disable /metrics.
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── health / metrics ──
	r.GET("/health", h.Health.Live)
	r.GET("/ready", h.Health.Ready)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	clockLimit := middleware.RateLimit(rdb, cfg.Attendance.ClockRateLimit, time.Minute, middleware.ByUser)
	studentOnly := middleware.RoleAuth(jwt.RoleStudent)
	supervisors := middleware.RoleAuth(jwt.RoleInstructor, jwt.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		attendance := v1.Group("/attendance")
		{
			attendance.GET("/eligibility", h.Attendance.CheckEligibility)
			attendance.GET("/sessions/check", h.Attendance.CheckSession)
			attendance.GET("/block-hours", h.Attendance.ComputeBlockHours)
			attendance.POST("/time-in", studentOnly, clockLimit, h.Attendance.TimeIn)
			attendance.POST("/time-out", studentOnly, clockLimit, h.Attendance.TimeOut)
		}

		requests := v1.Group("/forgot-timeout-requests", studentOnly)
		{
			requests.POST("", h.ForgotTimeout.Create)
			requests.GET("/mine", h.ForgotTimeout.ListMine)
		}

		instructor := v1.Group("/instructor/forgot-timeout-requests", supervisors)
		{
			instructor.GET("", h.ForgotTimeout.List)
			instructor.POST("/bulk-decision", h.ForgotTimeout.DecideBulk)
			instructor.POST("/:id/decision", h.ForgotTimeout.Decide)
		}
	}

	return r
}
