package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
)

// DocumentRepository read-only document compliance lookups
type DocumentRepository interface {
	CountRequired(ctx context.Context) (int64, error)
	// CountApprovedRequired counts distinct required documents the student
	// has an approved submission for.
	CountApprovedRequired(ctx context.Context, studentID string) (int64, error)
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo creates a DocumentRepository
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) CountRequired(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DocumentRequirement{}).
		Where("is_required = ?", true).
		Count(&count).Error
	return count, err
}

func (r *documentRepo) CountApprovedRequired(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DocumentSubmission{}).
		Joins("JOIN document_requirements ON document_requirements.document_id = document_submissions.document_id").
		Where("document_submissions.student_id = ? AND document_submissions.status = ?", studentID, model.DocumentSubmissionApproved).
		Where("document_requirements.is_required = ?", true).
		Distinct("document_submissions.document_id").
		Count(&count).Error
	return count, err
}
