package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
)

const dateLayout = "2006-01-02"

// AttendanceRepository attendance record data access
type AttendanceRepository interface {
	// Create inserts a record; ErrDuplicateKey when the (student, date, block)
	// row or an open session for it already exists.
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	FindByStudentDateBlock(ctx context.Context, studentID string, date time.Time, block model.BlockType) (*model.AttendanceRecord, error)
	// FindOpen returns the open record for the triple, or (nil, nil).
	FindOpen(ctx context.Context, studentID string, block model.BlockType, date time.Time) (*model.AttendanceRecord, error)
	// Close sets time_out and hours_earned only if the record is still open;
	// ErrOptimisticLock otherwise.
	Close(ctx context.Context, id string, timeOut time.Time, hours decimal.Decimal) error
	SumCompletedHours(ctx context.Context, studentID string) (decimal.Decimal, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo creates an AttendanceRepository
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return translateError(r.db.WithContext(ctx).Create(record).Error)
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("attendance_record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) FindByStudentDateBlock(ctx context.Context, studentID string, date time.Time, block model.BlockType) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND attendance_date = ? AND block_type = ?", studentID, date.Format(dateLayout), block).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) FindOpen(ctx context.Context, studentID string, block model.BlockType, date time.Time) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND block_type = ? AND attendance_date = ?", studentID, block, date.Format(dateLayout)).
		Where("time_in IS NOT NULL AND time_out IS NULL").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) Close(ctx context.Context, id string, timeOut time.Time, hours decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_record_id = ? AND time_in IS NOT NULL AND time_out IS NULL", id).
		Updates(map[string]interface{}{
			"time_out":     timeOut,
			"hours_earned": hours,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *attendanceRepo) SumCompletedHours(ctx context.Context, studentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Select("COALESCE(SUM(hours_earned), 0)").
		Where("student_id = ? AND time_in IS NOT NULL AND time_out IS NOT NULL", studentID).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
