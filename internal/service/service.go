package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/config"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/logger"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// Service aggregates every service.
type Service struct {
	Eligibility    EligibilityService
	Attendance     AttendanceService
	Reconciliation ReconciliationService
	Hours          HoursService
}

// NewService wires the services. clock is the single time source for every
// attendance decision.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	clock Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	compliance := NewComplianceEvaluator(repo, cfg.Attendance.ComplianceFailOpen, m, log)
	standing := NewStandingEvaluator(repo, clock, cfg.Attendance.StandingWindowDays, cfg.Attendance.StandingFailOpen, m, log)
	period := NewOJTPeriodEvaluator(repo, clock, log)
	eligibility := NewEligibilityService(compliance, period, standing, m, log)
	hours := NewHoursService(repo, m, log)

	return &Service{
		Eligibility:    eligibility,
		Attendance:     NewAttendanceService(repo, eligibility, clock, m, log),
		Reconciliation: NewReconciliationService(&cfg.Reconciliation, repo, clock, m, log),
		Hours:          hours,
	}
}

// Clock canonical time source
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns wall-clock time in loc.
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// civilDate strips the clock part of t, keeping its calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// correlationID returns the request's correlation id, minting one for calls
// that did not come through the HTTP stack.
func correlationID(ctx context.Context) string {
	if id := logger.CorrelationID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// systemError logs an infrastructure failure under a correlation id and
// returns the user-safe error carrying that id.
func systemError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	cid := correlationID(ctx)
	fields = append(fields, zap.String("correlation_id", cid), zap.Error(err))
	log.Error(msg, fields...)
	return pkgerrors.System(cid, err)
}

// inLocation re-reads a stored timestamp on the canonical clock's wall time
// so that block boundaries fall on the right calendar date.
func inLocation(clock Clock, t time.Time) time.Time {
	return t.In(clock.Now().Location())
}
