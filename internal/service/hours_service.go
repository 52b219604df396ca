package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/metrics"
)

// ErrStudentNotFound student row missing
var ErrStudentNotFound = pkgerrors.New(pkgerrors.KindNotFound, "student_not_found", "student not found")

const resyncBatchSize = 200

// ResyncReport outcome of a full accumulated-hours pass
type ResyncReport struct {
	Scanned int
	Drifted int
	Failed  int
}

// HoursService keeps students.accumulated_hours equal to the sum of their
// completed attendance records.
type HoursService interface {
	// ResyncStudent recomputes one student's total. drifted reports whether
	// the stored value was wrong.
	ResyncStudent(ctx context.Context, studentID string) (total decimal.Decimal, drifted bool, err error)
	// ResyncAll walks every student in batches. A failing student is logged
	// and skipped.
	ResyncAll(ctx context.Context) (*ResyncReport, error)
}

type hoursService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHoursService creates a HoursService
func NewHoursService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) HoursService {
	return &hoursService{repo: repo, metrics: m, logger: logger}
}

func (s *hoursService) ResyncStudent(ctx context.Context, studentID string) (decimal.Decimal, bool, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return decimal.Zero, false, err
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

	// Same lock as the time-out and approve paths, so a live decision cannot
	// land between the sum and the write.
	student, err := txRepo.Student.LockForUpdate(ctx, studentID)
	if err != nil {
		rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, ErrStudentNotFound
		}
		return decimal.Zero, false, err
	}

	total, err := txRepo.Attendance.SumCompletedHours(ctx, studentID)
	if err != nil {
		rollback()
		return decimal.Zero, false, err
	}
	if total.Equal(student.AccumulatedHours) {
		rollback()
		return total, false, nil
	}

	if err := txRepo.Student.UpdateAccumulatedHours(ctx, studentID, total); err != nil {
		rollback()
		return decimal.Zero, false, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return decimal.Zero, false, err
		}
	}

	s.metrics.HoursDrift()
	s.logger.Warn("accumulated hours drift corrected",
		zap.String("student_id", studentID),
		zap.String("stored", student.AccumulatedHours.StringFixed(2)),
		zap.String("recomputed", total.StringFixed(2)))
	return total, true, nil
}

func (s *hoursService) ResyncAll(ctx context.Context) (*ResyncReport, error) {
	report := &ResyncReport{}
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch, err := s.repo.Student.ListBatch(ctx, afterID, resyncBatchSize)
		if err != nil {
			s.logger.Error("list students failed", zap.String("after_id", afterID), zap.Error(err))
			return report, err
		}
		if len(batch) == 0 {
			return report, nil
		}

		for i := range batch {
			report.Scanned++
			_, drifted, err := s.ResyncStudent(ctx, batch[i].StudentID)
			if err != nil {
				report.Failed++
				s.logger.Error("hours resync failed", zap.String("student_id", batch[i].StudentID), zap.Error(err))
				continue
			}
			if drifted {
				report.Drifted++
			}
		}
		afterID = batch[len(batch)-1].StudentID
		if len(batch) < resyncBatchSize {
			return report, nil
		}
	}
}
