package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// ComplianceResult document compliance snapshot, recomputed on every call.
// Err reports a failed lookup; Compliant then follows the fail-open policy.
type ComplianceResult struct {
	Compliant bool
	Required  int
	Approved  int
	Ratio     decimal.Decimal // percent
	Err       error
}

// ComplianceEvaluator decides whether a student's required documents are approved.
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, studentID string) ComplianceResult
}

type complianceEvaluator struct {
	repo     *repository.Repository
	failOpen bool
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewComplianceEvaluator creates a ComplianceEvaluator
func NewComplianceEvaluator(repo *repository.Repository, failOpen bool, m *metrics.Metrics, logger *zap.Logger) ComplianceEvaluator {
	return &complianceEvaluator{repo: repo, failOpen: failOpen, metrics: m, logger: logger}
}

var hundred = decimal.NewFromInt(100)

func (e *complianceEvaluator) Evaluate(ctx context.Context, studentID string) ComplianceResult {
	required, err := e.repo.Document.CountRequired(ctx)
	if err != nil {
		return e.degraded(studentID, err)
	}
	approved, err := e.repo.Document.CountApprovedRequired(ctx, studentID)
	if err != nil {
		return e.degraded(studentID, err)
	}

	ratio := hundred
	if required > 0 {
		ratio = decimal.NewFromInt(approved).Mul(hundred).Div(decimal.NewFromInt(required)).Round(2)
	}

	return ComplianceResult{
		Compliant: approved >= required,
		Required:  int(required),
		Approved:  int(approved),
		Ratio:     ratio,
	}
}

func (e *complianceEvaluator) degraded(studentID string, err error) ComplianceResult {
	e.metrics.EvaluatorDegraded("compliance", e.failOpen)
	if e.failOpen {
		e.logger.Warn("compliance lookup failed, allowing access (fail-open)",
			zap.String("student_id", studentID), zap.Error(err))
	} else {
		e.logger.Error("compliance lookup failed, denying access (fail-closed)",
			zap.String("student_id", studentID), zap.Error(err))
	}
	return ComplianceResult{Compliant: e.failOpen, Ratio: decimal.Zero, Err: err}
}
