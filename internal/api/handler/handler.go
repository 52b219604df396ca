package handler

import (
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/redis"
)

// Handler aggregates every HTTP handler.
type Handler struct {
	Attendance    *AttendanceHandler
	ForgotTimeout *ForgotTimeoutHandler
	Auth          *AuthHandler
	Health        *HealthHandler
}

// NewHandler builds the handlers on top of svc. rdb may be nil.
func NewHandler(svc *service.Service, rdb *redis.Client, db Pinger, logger *zap.Logger) *Handler {
	var revoker TokenRevoker
	var cache Pinger
	if rdb != nil {
		revoker, cache = rdb, rdb
	}

	return &Handler{
		Attendance:    NewAttendanceHandler(svc.Eligibility, svc.Attendance),
		ForgotTimeout: NewForgotTimeoutHandler(svc.Reconciliation),
		Auth:          NewAuthHandler(revoker, logger),
		Health:        NewHealthHandler(map[string]Pinger{"database": db, "redis": cache}),
	}
}
