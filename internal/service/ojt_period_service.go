package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
)

// Inactive period reasons
const (
	PeriodReasonProfileMissing = "profile_missing"
	PeriodReasonNotStarted     = "not_started"
	PeriodReasonStatusInactive = "status_inactive"
)

// PeriodResult OJT window state
type PeriodResult struct {
	Active    bool
	StartDate *time.Time
	Status    string
	Reason    string
	Err       error
}

// OJTPeriodEvaluator decides whether a student's OJT window is open today.
type OJTPeriodEvaluator interface {
	Evaluate(ctx context.Context, studentID string) PeriodResult
}

type ojtPeriodEvaluator struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewOJTPeriodEvaluator creates an OJTPeriodEvaluator
func NewOJTPeriodEvaluator(repo *repository.Repository, clock Clock, logger *zap.Logger) OJTPeriodEvaluator {
	return &ojtPeriodEvaluator{repo: repo, clock: clock, logger: logger}
}

func (e *ojtPeriodEvaluator) Evaluate(ctx context.Context, studentID string) PeriodResult {
	student, err := e.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PeriodResult{Reason: PeriodReasonProfileMissing}
		}
		e.logger.Error("OJT profile lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return PeriodResult{Err: err}
	}
	if !student.HasOJTProfile() {
		return PeriodResult{Reason: PeriodReasonProfileMissing}
	}

	res := PeriodResult{StartDate: student.OJTStartDate, Status: *student.OJTStatus}

	// start_date is a calendar date; compare it against today's calendar date
	today := civilDate(e.clock.Now())
	if civilDate(*student.OJTStartDate).After(today) {
		res.Reason = PeriodReasonNotStarted
		return res
	}
	if res.Status != model.OJTStatusOnTrack {
		res.Reason = PeriodReasonStatusInactive
		return res
	}

	res.Active = true
	return res
}
