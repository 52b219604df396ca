package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/config"
	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// ── reconciliation errors ──

var (
	ErrAttendanceRecordNotFound = pkgerrors.New(pkgerrors.KindNotFound, "attendance_record_not_found", "attendance record not found")
	ErrRecordNotOpen            = pkgerrors.New(pkgerrors.KindConflict, "not_open", "attendance record has no open session")
	ErrRequestPending           = pkgerrors.New(pkgerrors.KindConflict, "request_pending", "a pending request already exists for this record")
	ErrRequestNotFound          = pkgerrors.New(pkgerrors.KindNotFound, "request_not_found", "forgot time-out request not found")
	ErrNotSupervisor            = pkgerrors.New(pkgerrors.KindAccessDenied, "not_supervisor", "you do not supervise this student")
	ErrRequestAlreadyDecided    = pkgerrors.New(pkgerrors.KindConflict, "already_decided", "request has already been decided")
	ErrInvalidDecision          = pkgerrors.New(pkgerrors.KindValidation, "invalid_decision", "decision must be approve or reject")
	ErrInvalidStatusFilter      = pkgerrors.New(pkgerrors.KindValidation, "invalid_status", "status must be all, pending, approved or rejected")
	ErrEmptyBulkRequest         = pkgerrors.New(pkgerrors.KindValidation, "empty_request_ids", "request_ids must not be empty")
	ErrBulkTooLarge             = pkgerrors.New(pkgerrors.KindValidation, "too_many_request_ids", "too many request ids in one bulk decision")
	ErrDuplicateRequestID       = pkgerrors.New(pkgerrors.KindValidation, "duplicate_request_id", "request id appears more than once")
)

// ReconciliationService forgot-time-out workflow
type ReconciliationService interface {
	// CreateRequest files a request against one of the student's open records.
	CreateRequest(ctx context.Context, studentID string, req *dto.CreateForgotTimeoutRequest) (*dto.ForgotTimeoutCreated, error)
	// ListRequests lists requests of the students the instructor supervises.
	ListRequests(ctx context.Context, instructorID string, req *dto.ListForgotTimeoutRequests) ([]dto.RequestSummary, int64, error)
	// ListStudentRequests lists a student's own requests.
	ListStudentRequests(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.RequestSummary, int64, error)
	// DecideRequest approves or rejects one pending request atomically.
	DecideRequest(ctx context.Context, requestID, instructorID string, req *dto.DecisionRequest) (*dto.DecisionResult, error)
	// DecideRequestsBulk applies one decision to many requests; failing items
	// are rolled back individually and reported.
	DecideRequestsBulk(ctx context.Context, instructorID string, req *dto.BulkDecisionRequest) (*dto.BulkDecisionResult, error)
}

type reconciliationService struct {
	cfg     *config.ReconciliationConfig
	repo    *repository.Repository
	clock   Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(
	cfg *config.ReconciliationConfig,
	repo *repository.Repository,
	clock Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReconciliationService {
	return &reconciliationService{cfg: cfg, repo: repo, clock: clock, metrics: m, logger: logger}
}

// ──── CreateRequest ────

func (s *reconciliationService) CreateRequest(ctx context.Context, studentID string, req *dto.CreateForgotTimeoutRequest) (*dto.ForgotTimeoutCreated, error) {
	record, err := s.repo.Attendance.GetByID(ctx, req.AttendanceRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceRecordNotFound
		}
		return nil, systemError(ctx, s.logger, "attendance record lookup failed", err,
			zap.String("record_id", req.AttendanceRecordID))
	}
	// someone else's record looks exactly like a missing one
	if record.StudentID != studentID {
		return nil, ErrAttendanceRecordNotFound
	}
	if !record.IsOpen() {
		return nil, ErrRecordNotOpen
	}

	pending, err := s.repo.ForgotTimeout.HasPending(ctx, record.AttendanceRecordID)
	if err != nil {
		return nil, systemError(ctx, s.logger, "pending request lookup failed", err,
			zap.String("record_id", record.AttendanceRecordID))
	}
	if pending {
		return nil, ErrRequestPending
	}

	ftr := &model.ForgotTimeoutRequest{
		AttendanceRecordID: record.AttendanceRecordID,
		StudentID:          studentID,
		Status:             model.RequestStatusPending,
		LetterRef:          req.LetterRef,
	}
	if err := s.repo.ForgotTimeout.Create(ctx, ftr); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrRequestPending
		}
		return nil, systemError(ctx, s.logger, "forgot time-out request insert failed", err,
			zap.String("record_id", record.AttendanceRecordID))
	}

	s.logger.Info("forgot time-out request filed",
		zap.String("request_id", ftr.RequestID),
		zap.String("student_id", studentID),
		zap.String("record_id", record.AttendanceRecordID))

	return &dto.ForgotTimeoutCreated{RequestID: ftr.RequestID, Status: ftr.Status}, nil
}

// ──── ListRequests ────

func (s *reconciliationService) ListRequests(ctx context.Context, instructorID string, req *dto.ListForgotTimeoutRequests) ([]dto.RequestSummary, int64, error) {
	status, err := normalizeStatusFilter(req.Status)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := s.paging(&req.PaginationRequest)

	reqs, total, err := s.repo.ForgotTimeout.ListForInstructor(ctx, instructorID, status, offset, limit)
	if err != nil {
		return nil, 0, systemError(ctx, s.logger, "list forgot time-out requests failed", err,
			zap.String("instructor_id", instructorID))
	}
	return toRequestSummaries(reqs), total, nil
}

func (s *reconciliationService) ListStudentRequests(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.RequestSummary, int64, error) {
	offset, limit := s.paging(req)

	reqs, total, err := s.repo.ForgotTimeout.ListByStudent(ctx, studentID, offset, limit)
	if err != nil {
		return nil, 0, systemError(ctx, s.logger, "list student requests failed", err,
			zap.String("student_id", studentID))
	}
	return toRequestSummaries(reqs), total, nil
}

// paging applies the configured default and cap to p, then returns offset
// and limit. p is normalized in place so callers echo the effective size.
func (s *reconciliationService) paging(p *dto.PaginationRequest) (offset, limit int) {
	if p.PageSize <= 0 {
		p.PageSize = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && p.PageSize > s.cfg.MaxPageSize {
		p.PageSize = s.cfg.MaxPageSize
	}
	return p.GetOffset(), p.GetPageSize()
}

func normalizeStatusFilter(status string) (string, error) {
	switch status {
	case "", "all":
		return "", nil
	case model.RequestStatusPending, model.RequestStatusApproved, model.RequestStatusRejected:
		return status, nil
	}
	return "", ErrInvalidStatusFilter.WithDetail("%q", status)
}

// ──── DecideRequest ────

func (s *reconciliationService) DecideRequest(ctx context.Context, requestID, instructorID string, req *dto.DecisionRequest) (*dto.DecisionResult, error) {
	if err := validateDecision(req.Decision); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, systemError(ctx, s.logger, "begin transaction failed", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	result, err := s.decide(ctx, s.repo.WithTx(tx), requestID, instructorID, req.Decision, req.Response)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.metrics.Decision(req.Decision, string(pkgerrors.KindOf(err)))
		return nil, s.classify(ctx, err, requestID)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.metrics.Decision(req.Decision, string(pkgerrors.KindSystem))
			return nil, systemError(ctx, s.logger, "commit decision failed", err, zap.String("request_id", requestID))
		}
	}

	s.metrics.Decision(req.Decision, "success")
	s.logger.Info("forgot time-out request decided",
		zap.String("request_id", requestID),
		zap.String("decision", req.Decision),
		zap.String("instructor_id", instructorID))
	return result, nil
}

// ──── DecideRequestsBulk ────

func (s *reconciliationService) DecideRequestsBulk(ctx context.Context, instructorID string, req *dto.BulkDecisionRequest) (*dto.BulkDecisionResult, error) {
	if err := validateDecision(req.Decision); err != nil {
		return nil, err
	}
	if len(req.RequestIDs) == 0 {
		return nil, ErrEmptyBulkRequest
	}
	if s.cfg.BulkMaxItems > 0 && len(req.RequestIDs) > s.cfg.BulkMaxItems {
		return nil, ErrBulkTooLarge.WithDetail("at most %d", s.cfg.BulkMaxItems)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := &dto.BulkDecisionResult{
		TotalCount: len(req.RequestIDs),
		Errors:     []dto.BulkItemError{},
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, systemError(ctx, s.logger, "begin transaction failed", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	seen := make(map[string]struct{}, len(req.RequestIDs))
	for i, requestID := range req.RequestIDs {
		if _, dup := seen[requestID]; dup {
			result.Errors = append(result.Errors, itemError(requestID, ErrDuplicateRequestID))
			continue
		}
		seen[requestID] = struct{}{}

		savepoint := fmt.Sprintf("bulk_item_%d", i)
		if err := txRepo.SavePoint(savepoint); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return nil, systemError(ctx, s.logger, "savepoint failed", err, zap.String("request_id", requestID))
		}

		if _, err := s.decide(ctx, txRepo, requestID, instructorID, req.Decision, req.Response); err != nil {
			if rbErr := txRepo.RollbackTo(savepoint); rbErr != nil {
				if tx != nil {
					tx.Rollback()
				}
				return nil, systemError(ctx, s.logger, "rollback to savepoint failed", rbErr, zap.String("request_id", requestID))
			}
			s.metrics.Decision(req.Decision, string(pkgerrors.KindOf(err)))
			result.Errors = append(result.Errors, itemError(requestID, s.classify(ctx, err, requestID)))
			continue
		}
		result.ProcessedCount++
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, systemError(ctx, s.logger, "commit bulk decision failed", err,
				zap.Int("processed", result.ProcessedCount))
		}
	}

	for i := 0; i < result.ProcessedCount; i++ {
		s.metrics.Decision(req.Decision, "success")
	}
	s.logger.Info("bulk decision applied",
		zap.String("instructor_id", instructorID),
		zap.String("decision", req.Decision),
		zap.Int("processed", result.ProcessedCount),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

// ── decision core ──

// decide runs one decision on repo, which carries the caller's transaction.
// Business failures come back as typed errors; anything else is raw.
func (s *reconciliationService) decide(ctx context.Context, repo *repository.Repository, requestID, instructorID, decision string, response *string) (*dto.DecisionResult, error) {
	// 1. lock the request and its record
	ftr, err := repo.ForgotTimeout.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	// 2. authorization
	supervised, err := repo.Student.IsSupervisedBy(ctx, ftr.StudentID, instructorID)
	if err != nil {
		return nil, err
	}
	if !supervised {
		return nil, ErrNotSupervisor
	}

	// 3. state
	if ftr.IsTerminal() {
		return nil, alreadyDecided(ftr)
	}

	now := s.clock.Now()
	result := &dto.DecisionResult{RequestID: requestID, Success: true}

	// 4. approval closes the record at the end of its block
	if decision == dto.DecisionApprove {
		record := ftr.AttendanceRecord
		if record == nil {
			if record, err = repo.Attendance.GetByID(ctx, ftr.AttendanceRecordID); err != nil {
				return nil, err
			}
		}
		if !record.IsOpen() {
			return nil, ErrRecordNotOpen
		}

		hours, err := ComputeBlockHours(inLocation(s.clock, *record.TimeIn), record.BlockType)
		if err != nil {
			return nil, err
		}
		if hours.Anomalous {
			s.metrics.BlockHoursAnomaly(string(record.BlockType))
			s.logger.Warn("time-in at or after block end, approving with zero hours",
				zap.String("request_id", requestID),
				zap.String("record_id", record.AttendanceRecordID))
		}

		total, err := closeRecord(ctx, repo, record, hours)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return nil, ErrRecordNotOpen
			}
			return nil, err
		}
		result.TimeOut = hours.TimeOut.Format(dateTimeLayout)
		result.HoursEarned = hours.HoursEarned.StringFixed(2)
		result.Anomalous = hours.Anomalous
		result.AccumulatedHours = total.StringFixed(2)
	}

	// 5. request status
	status := model.RequestStatusRejected
	if decision == dto.DecisionApprove {
		status = model.RequestStatusApproved
	}
	if err := repo.ForgotTimeout.Decide(ctx, requestID, status, instructorID, response, now); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrRequestAlreadyDecided
		}
		return nil, err
	}

	result.Status = status
	result.Message = "request " + status
	return result, nil
}

// classify keeps typed errors and turns everything else into a logged
// system error.
func (s *reconciliationService) classify(ctx context.Context, err error, requestID string) error {
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return systemError(ctx, s.logger, "decision timed out, request left pending", err, zap.String("request_id", requestID))
	}
	return systemError(ctx, s.logger, "decision failed, request left pending", err, zap.String("request_id", requestID))
}

func (s *reconciliationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.DecisionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.DecisionTimeout)
}

func validateDecision(decision string) error {
	if decision != dto.DecisionApprove && decision != dto.DecisionReject {
		return ErrInvalidDecision.WithDetail("%q", decision)
	}
	return nil
}

func alreadyDecided(ftr *model.ForgotTimeoutRequest) error {
	by, at := "unknown", "unknown time"
	if ftr.DecidedBy != nil {
		by = *ftr.DecidedBy
	}
	if ftr.DecidedAt != nil {
		at = ftr.DecidedAt.Format(time.RFC3339)
	}
	return ErrRequestAlreadyDecided.WithDetail("%s by %s at %s", ftr.Status, by, at)
}

func itemError(requestID string, err error) dto.BulkItemError {
	item := dto.BulkItemError{RequestID: requestID, Code: string(pkgerrors.KindSystem), Message: pkgerrors.PublicMessage(err)}
	if e, ok := pkgerrors.As(err); ok {
		item.Code = e.Code
		if e.Kind == pkgerrors.KindSystem && e.CorrelationID != "" {
			item.Message += " (correlation id " + e.CorrelationID + ")"
		}
	}
	return item
}

func toRequestSummaries(reqs []model.ForgotTimeoutRequest) []dto.RequestSummary {
	out := make([]dto.RequestSummary, 0, len(reqs))
	for i := range reqs {
		out = append(out, toRequestSummary(&reqs[i]))
	}
	return out
}

func toRequestSummary(r *model.ForgotTimeoutRequest) dto.RequestSummary {
	sum := dto.RequestSummary{
		ID:                 r.RequestID,
		Status:             r.Status,
		StudentID:          r.StudentID,
		AttendanceRecordID: r.AttendanceRecordID,
		CreatedAt:          r.CreatedAt.Format(dateTimeLayout),
	}
	if r.LetterRef != nil {
		sum.LetterRef = *r.LetterRef
	}
	if r.InstructorResponse != nil {
		sum.InstructorResponse = *r.InstructorResponse
	}
	if r.DecidedBy != nil {
		sum.DecidedBy = *r.DecidedBy
	}
	if r.DecidedAt != nil {
		sum.DecidedAt = r.DecidedAt.Format(dateTimeLayout)
	}
	if r.Student != nil {
		sum.StudentName = r.Student.FullName
		sum.StudentNumber = r.Student.StudentNumber
		if r.Student.Section != nil {
			sum.SectionName = r.Student.Section.Name
		}
	}
	if rec := r.AttendanceRecord; rec != nil {
		sum.Date = rec.AttendanceDate.Format(dateLayout)
		sum.BlockType = string(rec.BlockType)
		if rec.TimeIn != nil {
			sum.TimeIn = rec.TimeIn.Format(dateTimeLayout)
		}
	}
	return sum
}
