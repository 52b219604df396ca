package model

import "time"

// StudentViolation maps student_violations, disciplinary events recorded elsewhere.
type StudentViolation struct {
	ViolationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"violation_id"`
	StudentID   string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Kind        string    `gorm:"type:varchar(50);not null"                      json:"kind"`
	OccurredAt  time.Time `gorm:"not null"                                       json:"occurred_at"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName table name
func (StudentViolation) TableName() string { return "student_violations" }
