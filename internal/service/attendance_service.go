package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// ── attendance errors ──

var (
	ErrConcurrentAccess = pkgerrors.New(pkgerrors.KindConflict, "concurrent_access", "an open session already exists for this block")
	ErrBlockCompleted   = pkgerrors.New(pkgerrors.KindConflict, "block_completed", "this block has already been completed today")
	ErrNoOpenSession    = pkgerrors.New(pkgerrors.KindNotFound, "no_open_session", "no open session for this block today")
	ErrInvalidTimeIn    = pkgerrors.New(pkgerrors.KindValidation, "invalid_time_in", "time_in must be an RFC3339 timestamp")
	ErrInvalidDate      = pkgerrors.New(pkgerrors.KindValidation, "invalid_date", "date must be formatted as YYYY-MM-DD")
)

// AttendanceService time-in / time-out and their guards
type AttendanceService interface {
	// CheckConcurrentSession refuses iff an open session exists for the exact
	// (student, block, date) triple. A zero date means today.
	CheckConcurrentSession(ctx context.Context, studentID, blockType string, date time.Time) (*dto.SessionCheckResult, error)
	// ComputeBlockHours previews the hours a session opened at timeIn earns
	// when closed at the end of its block.
	ComputeBlockHours(req *dto.BlockHoursRequest) (*dto.BlockHoursResult, error)
	// TimeIn opens a session after the eligibility gate and the guard pass.
	TimeIn(ctx context.Context, studentID string, req *dto.TimeInRequest) (*dto.AttendanceRecordResponse, error)
	// TimeOut closes today's open session for the block.
	TimeOut(ctx context.Context, studentID string, req *dto.TimeOutRequest) (*dto.AttendanceRecordResponse, error)
	// ParseDate parses an optional YYYY-MM-DD query value; "" means today.
	ParseDate(value string) (time.Time, error)
	// AuthorizeStudentAccess decides whether actor may read studentID's
	// attendance. actorID is the caller's student id for students and the
	// user id otherwise. Admins read everyone, instructors their sections.
	AuthorizeStudentAccess(ctx context.Context, actorID, role, studentID string) error
}

type attendanceService struct {
	repo        *repository.Repository
	eligibility EligibilityService
	clock       Clock
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewAttendanceService creates an AttendanceService
func NewAttendanceService(
	repo *repository.Repository,
	eligibility EligibilityService,
	clock Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{
		repo:        repo,
		eligibility: eligibility,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// ──── CheckConcurrentSession ────

func (s *attendanceService) CheckConcurrentSession(ctx context.Context, studentID, blockType string, date time.Time) (*dto.SessionCheckResult, error) {
	block := model.BlockType(blockType)
	if !block.Valid() {
		return nil, ErrUnknownBlockType.WithDetail("%q", blockType)
	}
	if date.IsZero() {
		date = s.clock.Now()
	}

	open, err := s.repo.Attendance.FindOpen(ctx, studentID, block, civilDate(date))
	if err != nil {
		return nil, systemError(ctx, s.logger, "open session lookup failed", err,
			zap.String("student_id", studentID), zap.String("block_type", blockType))
	}
	if open != nil {
		s.metrics.ConcurrentRefusal()
		return &dto.SessionCheckResult{
			Allowed:    false,
			ReasonCode: ErrConcurrentAccess.Code,
			Message:    ErrConcurrentAccess.Message,
		}, nil
	}
	return &dto.SessionCheckResult{Allowed: true, Message: "no open session for this block"}, nil
}

// ──── ComputeBlockHours ────

func (s *attendanceService) ComputeBlockHours(req *dto.BlockHoursRequest) (*dto.BlockHoursResult, error) {
	timeIn, err := time.Parse(dateTimeLayout, req.TimeIn)
	if err != nil {
		return nil, ErrInvalidTimeIn
	}
	res, err := ComputeBlockHours(timeIn, model.BlockType(req.BlockType))
	if err != nil {
		return nil, err
	}
	if res.Anomalous {
		s.metrics.BlockHoursAnomaly(req.BlockType)
	}
	return toBlockHoursResult(res), nil
}

// ──── TimeIn ────

func (s *attendanceService) TimeIn(ctx context.Context, studentID string, req *dto.TimeInRequest) (*dto.AttendanceRecordResponse, error) {
	block := model.BlockType(req.BlockType)
	if !block.Valid() {
		return nil, ErrUnknownBlockType.WithDetail("%q", req.BlockType)
	}

	// 1. eligibility gate
	verdict := s.eligibility.CheckEligibility(ctx, studentID)
	if !verdict.Allowed {
		if verdict.ReasonCode == dto.ReasonSystemError {
			return nil, pkgerrors.System(verdict.CorrelationID, errors.New("eligibility evaluation failed"))
		}
		return nil, &pkgerrors.Error{
			Kind:    pkgerrors.KindAccessDenied,
			Code:    verdict.ReasonCode,
			Message: verdict.Message,
			Hint:    verdict.RedirectHint,
		}
	}

	now := s.clock.Now()
	today := civilDate(now)

	// 2. concurrency guard
	open, err := s.repo.Attendance.FindOpen(ctx, studentID, block, today)
	if err != nil {
		return nil, systemError(ctx, s.logger, "open session lookup failed", err, zap.String("student_id", studentID))
	}
	if open != nil {
		s.metrics.ConcurrentRefusal()
		return nil, ErrConcurrentAccess
	}

	// 3. one record per (student, date, block)
	existing, err := s.repo.Attendance.FindByStudentDateBlock(ctx, studentID, today, block)
	if err == nil {
		if existing.IsOpen() {
			s.metrics.ConcurrentRefusal()
			return nil, ErrConcurrentAccess
		}
		return nil, ErrBlockCompleted
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, systemError(ctx, s.logger, "attendance lookup failed", err, zap.String("student_id", studentID))
	}

	record := &model.AttendanceRecord{
		StudentID:      studentID,
		AttendanceDate: today,
		BlockType:      block,
		TimeIn:         &now,
		HoursEarned:    decimal.Zero,
		PhotoRef:       req.PhotoRef,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}
	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// lost the race against a concurrent time-in
			s.metrics.ConcurrentRefusal()
			return nil, ErrConcurrentAccess
		}
		return nil, systemError(ctx, s.logger, "time-in insert failed", err, zap.String("student_id", studentID))
	}

	s.logger.Info("time-in recorded",
		zap.String("student_id", studentID),
		zap.String("block_type", string(block)),
		zap.String("record_id", record.AttendanceRecordID))

	return toRecordResponse(record, false), nil
}

// ──── TimeOut ────

func (s *attendanceService) TimeOut(ctx context.Context, studentID string, req *dto.TimeOutRequest) (*dto.AttendanceRecordResponse, error) {
	block := model.BlockType(req.BlockType)
	if !block.Valid() {
		return nil, ErrUnknownBlockType.WithDetail("%q", req.BlockType)
	}

	now := s.clock.Now()

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
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}
	txRepo := s.repo.WithTx(tx)

	record, err := txRepo.Attendance.FindOpen(ctx, studentID, block, civilDate(now))
	if err != nil {
		rollback()
		return nil, systemError(ctx, s.logger, "open session lookup failed", err, zap.String("student_id", studentID))
	}
	if record == nil {
		rollback()
		return nil, ErrNoOpenSession
	}

	hours, err := computeClosedHours(inLocation(s.clock, *record.TimeIn), now, record.BlockType)
	if err != nil {
		rollback()
		return nil, err
	}
	if hours.Anomalous {
		s.metrics.BlockHoursAnomaly(string(record.BlockType))
	}

	total, err := closeRecord(ctx, txRepo, record, hours)
	if err != nil {
		rollback()
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrNoOpenSession
		}
		return nil, systemError(ctx, s.logger, "time-out write failed", err,
			zap.String("student_id", studentID), zap.String("record_id", record.AttendanceRecordID))
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, systemError(ctx, s.logger, "commit failed", err)
		}
	}

	s.logger.Info("time-out recorded",
		zap.String("student_id", studentID),
		zap.String("record_id", record.AttendanceRecordID),
		zap.String("hours_earned", hours.HoursEarned.StringFixed(2)))

	resp := toRecordResponse(record, hours.Anomalous)
	resp.AccumulatedHours = total.StringFixed(2)
	return resp, nil
}

func (s *attendanceService) ParseDate(value string) (time.Time, error) {
	if value == "" {
		return civilDate(s.clock.Now()), nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func (s *attendanceService) AuthorizeStudentAccess(ctx context.Context, actorID, role, studentID string) error {
	switch role {
	case jwt.RoleAdmin:
		return nil
	case jwt.RoleStudent:
		if actorID == studentID {
			return nil
		}
		return ErrNotSupervisor
	case jwt.RoleInstructor:
		supervised, err := s.repo.Student.IsSupervisedBy(ctx, studentID, actorID)
		if err != nil {
			return systemError(ctx, s.logger, "supervision lookup failed", err,
				zap.String("student_id", studentID), zap.String("instructor_id", actorID))
		}
		if !supervised {
			return ErrNotSupervisor
		}
		return nil
	default:
		return ErrNotSupervisor
	}
}

// ── shared write path ──

// closeRecord is the only place time_out and hours_earned are written. It
// closes the record if still open, then recomputes the student's total from
// completed records. record is updated in place.
func closeRecord(ctx context.Context, repo *repository.Repository, record *model.AttendanceRecord, hours BlockHours) (decimal.Decimal, error) {
	if err := repo.Attendance.Close(ctx, record.AttendanceRecordID, hours.TimeOut, hours.HoursEarned); err != nil {
		return decimal.Zero, err
	}
	timeOut := hours.TimeOut
	record.TimeOut = &timeOut
	record.HoursEarned = hours.HoursEarned

	return resyncStudentHours(ctx, repo, record.StudentID)
}

// resyncStudentHours writes the sum of completed hours to the student row.
// The student row is locked before summing so concurrent closes for the same
// student serialize and the last writer sees every committed record.
func resyncStudentHours(ctx context.Context, repo *repository.Repository, studentID string) (decimal.Decimal, error) {
	if _, err := repo.Student.LockForUpdate(ctx, studentID); err != nil {
		return decimal.Zero, err
	}
	total, err := repo.Attendance.SumCompletedHours(ctx, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := repo.Student.UpdateAccumulatedHours(ctx, studentID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func toRecordResponse(r *model.AttendanceRecord, anomalous bool) *dto.AttendanceRecordResponse {
	resp := &dto.AttendanceRecordResponse{
		ID:          r.AttendanceRecordID,
		StudentID:   r.StudentID,
		Date:        r.AttendanceDate.Format(dateLayout),
		BlockType:   string(r.BlockType),
		HoursEarned: r.HoursEarned.StringFixed(2),
		Anomalous:   anomalous,
	}
	if r.TimeIn != nil {
		resp.TimeIn = r.TimeIn.Format(dateTimeLayout)
	}
	if r.TimeOut != nil {
		resp.TimeOut = r.TimeOut.Format(dateTimeLayout)
	}
	return resp
}
