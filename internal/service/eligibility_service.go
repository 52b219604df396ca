package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// EligibilityService the gate every time-in passes through
type EligibilityService interface {
	// CheckEligibility evaluates compliance, OJT period and standing, in that
	// order. The first failing check decides the reason.
	CheckEligibility(ctx context.Context, studentID string) *dto.EligibilityResult
}

type eligibilityService struct {
	compliance ComplianceEvaluator
	period     OJTPeriodEvaluator
	standing   StandingEvaluator
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewEligibilityService creates an EligibilityService
func NewEligibilityService(
	compliance ComplianceEvaluator,
	period OJTPeriodEvaluator,
	standing StandingEvaluator,
	m *metrics.Metrics,
	logger *zap.Logger,
) EligibilityService {
	return &eligibilityService{
		compliance: compliance,
		period:     period,
		standing:   standing,
		metrics:    m,
		logger:     logger,
	}
}

func (s *eligibilityService) CheckEligibility(ctx context.Context, studentID string) *dto.EligibilityResult {
	res := &dto.EligibilityResult{}

	// 1. documents
	c := s.compliance.Evaluate(ctx, studentID)
	res.Detail.Compliance = dto.ComplianceDetail{
		Compliant: c.Compliant,
		Required:  c.Required,
		Approved:  c.Approved,
		Ratio:     c.Ratio.StringFixed(2),
		Error:     errString(c.Err),
	}
	if !c.Compliant {
		if c.Err != nil {
			return s.systemError(ctx, res, "compliance", studentID, c.Err)
		}
		return s.deny(res, dto.ReasonDocumentCompliance, dto.HintDocuments,
			fmt.Sprintf("required documents are not complete (%d of %d approved)", c.Approved, c.Required))
	}

	// 2. OJT period
	p := s.period.Evaluate(ctx, studentID)
	res.Detail.Period = dto.PeriodDetail{
		Active: p.Active,
		Status: p.Status,
		Reason: p.Reason,
		Error:  errString(p.Err),
	}
	if p.StartDate != nil {
		res.Detail.Period.StartDate = p.StartDate.Format(dateLayout)
	}
	if !p.Active {
		if p.Err != nil {
			return s.systemError(ctx, res, "ojt_period", studentID, p.Err)
		}
		return s.deny(res, dto.ReasonOJTInactive, dto.HintOJTProfile, periodMessage(p.Reason))
	}

	// 3. standing
	st := s.standing.Evaluate(ctx, studentID)
	res.Detail.Standing = dto.StandingDetail{
		GoodStanding:   st.GoodStanding,
		ViolationCount: st.ViolationCount,
		Error:          errString(st.Err),
	}
	if !st.GoodStanding {
		if st.Err != nil {
			return s.systemError(ctx, res, "standing", studentID, st.Err)
		}
		return s.deny(res, dto.ReasonPoorStanding, dto.HintStanding,
			fmt.Sprintf("%d violation(s) recorded in the standing window", st.ViolationCount))
	}

	res.Allowed = true
	res.Message = "eligible for attendance"
	s.metrics.EligibilityChecked("allowed")
	return res
}

func (s *eligibilityService) deny(res *dto.EligibilityResult, reason, hint, msg string) *dto.EligibilityResult {
	res.Allowed = false
	res.ReasonCode = reason
	res.RedirectHint = hint
	res.Message = msg
	s.metrics.EligibilityChecked(reason)
	return res
}

func (s *eligibilityService) systemError(ctx context.Context, res *dto.EligibilityResult, evaluator, studentID string, cause error) *dto.EligibilityResult {
	cid := correlationID(ctx)
	s.logger.Error("eligibility evaluation failed",
		zap.String("evaluator", evaluator),
		zap.String("student_id", studentID),
		zap.String("correlation_id", cid),
		zap.Error(cause))

	res.Allowed = false
	res.ReasonCode = dto.ReasonSystemError
	res.RedirectHint = dto.HintRetryLater
	res.CorrelationID = cid
	res.Message = "eligibility could not be verified, please try again later"
	s.metrics.EligibilityChecked(dto.ReasonSystemError)
	return res
}

func periodMessage(reason string) string {
	switch reason {
	case PeriodReasonProfileMissing:
		return "OJT profile is incomplete"
	case PeriodReasonNotStarted:
		return "OJT period has not started yet"
	case PeriodReasonStatusInactive:
		return "OJT status does not allow attendance"
	}
	return "OJT period is not active"
}

// errString marks a failed lookup without exposing its cause.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return "lookup_failed"
}
