package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
)

// ForgotTimeoutRepository forgot-time-out request data access
type ForgotTimeoutRepository interface {
	// Create inserts a pending request; ErrDuplicateKey if the record already
	// has a pending request.
	Create(ctx context.Context, req *model.ForgotTimeoutRequest) error
	GetByID(ctx context.Context, id string) (*model.ForgotTimeoutRequest, error)
	// GetByIDForUpdate loads the request and row-locks it, then its record,
	// for the rest of the transaction. Only meaningful on a WithTx repository.
	GetByIDForUpdate(ctx context.Context, id string) (*model.ForgotTimeoutRequest, error)
	HasPending(ctx context.Context, attendanceRecordID string) (bool, error)
	// Decide moves a pending request to a terminal status; ErrOptimisticLock
	// if it is no longer pending.
	Decide(ctx context.Context, id, status, decidedBy string, response *string, decidedAt time.Time) error
	ListForInstructor(ctx context.Context, instructorID, status string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error)
	ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error)
}

type forgotTimeoutRepo struct {
	db *gorm.DB
}

// NewForgotTimeoutRepo creates a ForgotTimeoutRepository
func NewForgotTimeoutRepo(db *gorm.DB) ForgotTimeoutRepository {
	return &forgotTimeoutRepo{db: db}
}

func (r *forgotTimeoutRepo) Create(ctx context.Context, req *model.ForgotTimeoutRequest) error {
	return translateError(r.db.WithContext(ctx).Create(req).Error)
}

func (r *forgotTimeoutRepo) GetByID(ctx context.Context, id string) (*model.ForgotTimeoutRequest, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var req model.ForgotTimeoutRequest
	err := r.db.WithContext(ctx).
		Preload("AttendanceRecord").
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *forgotTimeoutRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ForgotTimeoutRequest, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var req model.ForgotTimeoutRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}

	var record model.AttendanceRecord
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("attendance_record_id = ?", req.AttendanceRecordID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	req.AttendanceRecord = &record
	return &req, nil
}

func (r *forgotTimeoutRepo) HasPending(ctx context.Context, attendanceRecordID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ForgotTimeoutRequest{}).
		Where("attendance_record_id = ? AND status = ?", attendanceRecordID, model.RequestStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *forgotTimeoutRepo) Decide(ctx context.Context, id, status, decidedBy string, response *string, decidedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.ForgotTimeoutRequest{}).
		Where("request_id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":              status,
			"decided_by":          decidedBy,
			"decided_at":          decidedAt,
			"instructor_response": response,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *forgotTimeoutRepo) ListForInstructor(ctx context.Context, instructorID, status string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error) {
	var reqs []model.ForgotTimeoutRequest
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.ForgotTimeoutRequest{}).
		Joins("JOIN students ON students.student_id = forgot_timeout_requests.student_id").
		Joins("JOIN sections ON sections.section_id = students.section_id").
		Where("sections.instructor_id = ?", instructorID)
	if status != "" {
		db = db.Where("forgot_timeout_requests.status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("AttendanceRecord").
		Preload("Student").Preload("Student.Section").
		Order("forgot_timeout_requests.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, total, err
}

func (r *forgotTimeoutRepo) ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error) {
	var reqs []model.ForgotTimeoutRequest
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.ForgotTimeoutRequest{}).
		Where("student_id = ?", studentID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("AttendanceRecord").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, total, err
}
