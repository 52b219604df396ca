package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
)

// ViolationRepository read-only disciplinary event lookups
type ViolationRepository interface {
	CountBetween(ctx context.Context, studentID string, from, to time.Time) (int64, error)
}

type violationRepo struct {
	db *gorm.DB
}

// NewViolationRepo creates a ViolationRepository
func NewViolationRepo(db *gorm.DB) ViolationRepository {
	return &violationRepo{db: db}
}

func (r *violationRepo) CountBetween(ctx context.Context, studentID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.StudentViolation{}).
		Where("student_id = ? AND occurred_at >= ? AND occurred_at <= ?", studentID, from, to).
		Count(&count).Error
	return count, err
}
