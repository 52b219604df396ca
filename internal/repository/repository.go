package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey a unique constraint rejected the write
var ErrDuplicateKey = errors.New("duplicate key")

// pgUniqueViolation SQLSTATE unique_violation
const pgUniqueViolation = "23505"

// Repository aggregates every repository.
//
// A Repository built by WithTx shares one transaction across all of its
// repositories. A Repository with no database (unit tests with mock
// repositories) treats transaction calls as no-ops.
type Repository struct {
	Student       StudentRepository
	Attendance    AttendanceRepository
	ForgotTimeout ForgotTimeoutRepository
	Document      DocumentRepository
	Violation     ViolationRepository

	db *gorm.DB
}

// NewRepository builds the aggregate on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Student:       NewStudentRepo(db),
		Attendance:    NewAttendanceRepo(db),
		ForgotTimeout: NewForgotTimeoutRepo(db),
		Document:      NewDocumentRepo(db),
		Violation:     NewViolationRepo(db),
		db:            db,
	}
}

// BeginTx starts a transaction. Returns a nil tx when no database is attached.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx returns a Repository whose repositories all run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{
		Student:       NewStudentRepo(tx),
		Attendance:    NewAttendanceRepo(tx),
		ForgotTimeout: NewForgotTimeoutRepo(tx),
		Document:      NewDocumentRepo(tx),
		Violation:     NewViolationRepo(tx),
		db:            tx,
	}
}

// SavePoint marks a savepoint on the transaction held by a WithTx repository.
func (r *Repository) SavePoint(name string) error {
	if r.db == nil {
		return nil
	}
	return r.db.SavePoint(name).Error
}

// RollbackTo undoes everything after the named savepoint.
func (r *Repository) RollbackTo(name string) error {
	if r.db == nil {
		return nil
	}
	return r.db.RollbackTo(name).Error
}

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateKey
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// validID reports whether id is a canonical UUID. Every key column is uuid,
// so anything else cannot match a row.
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
