package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
)

// StudentRepository student data access
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
	// LockForUpdate row-locks the student for the rest of the transaction.
	// Every write to accumulated_hours takes this lock before summing.
	LockForUpdate(ctx context.Context, id string) (*model.Student, error)
	UpdateAccumulatedHours(ctx context.Context, id string, hours decimal.Decimal) error
	// ListBatch pages through students ordered by id, starting after afterID.
	ListBatch(ctx context.Context, afterID string, limit int) ([]model.Student, error)
	IsSupervisedBy(ctx context.Context, studentID, instructorID string) (bool, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo creates a StudentRepository
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("Section").
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) LockForUpdate(ctx context.Context, id string) (*model.Student, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var student model.Student
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) UpdateAccumulatedHours(ctx context.Context, id string, hours decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
		Updates(map[string]interface{}{
			"accumulated_hours": hours,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepo) ListBatch(ctx context.Context, afterID string, limit int) ([]model.Student, error) {
	var students []model.Student
	db := r.db.WithContext(ctx).Order("student_id ASC").Limit(limit)
	if afterID != "" {
		db = db.Where("student_id > ?", afterID)
	}
	err := db.Find(&students).Error
	return students, err
}

func (r *studentRepo) IsSupervisedBy(ctx context.Context, studentID, instructorID string) (bool, error) {
	if !validID(studentID) || !validID(instructorID) {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Joins("JOIN sections ON sections.section_id = students.section_id").
		Where("students.student_id = ? AND sections.instructor_id = ?", studentID, instructorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
