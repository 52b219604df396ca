package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// StandingResult disciplinary standing over the trailing window
type StandingResult struct {
	GoodStanding   bool
	ViolationCount int
	Err            error
}

// StandingEvaluator decides whether recent violations block access.
type StandingEvaluator interface {
	Evaluate(ctx context.Context, studentID string) StandingResult
}

type standingEvaluator struct {
	repo       *repository.Repository
	clock      Clock
	windowDays int
	failOpen   bool
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewStandingEvaluator creates a StandingEvaluator counting violations in
// the last windowDays days.
func NewStandingEvaluator(repo *repository.Repository, clock Clock, windowDays int, failOpen bool, m *metrics.Metrics, logger *zap.Logger) StandingEvaluator {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &standingEvaluator{
		repo:       repo,
		clock:      clock,
		windowDays: windowDays,
		failOpen:   failOpen,
		metrics:    m,
		logger:     logger,
	}
}

func (e *standingEvaluator) Evaluate(ctx context.Context, studentID string) StandingResult {
	now := e.clock.Now()
	from := now.Add(-time.Duration(e.windowDays) * 24 * time.Hour)

	count, err := e.repo.Violation.CountBetween(ctx, studentID, from, now)
	if err != nil {
		e.metrics.EvaluatorDegraded("standing", e.failOpen)
		if e.failOpen {
			e.logger.Warn("standing lookup failed, allowing access (fail-open)",
				zap.String("student_id", studentID), zap.Error(err))
		} else {
			e.logger.Error("standing lookup failed, denying access (fail-closed)",
				zap.String("student_id", studentID), zap.Error(err))
		}
		return StandingResult{GoodStanding: e.failOpen, Err: err}
	}

	return StandingResult{GoodStanding: count == 0, ViolationCount: int(count)}
}
