package model

import "time"

// Forgot-time-out request statuses. approved and rejected are terminal.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// ForgotTimeoutRequest maps forgot_timeout_requests
type ForgotTimeoutRequest struct {
	RequestID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	AttendanceRecordID string     `gorm:"type:uuid;not null"                             json:"attendance_record_id"`
	StudentID          string     `gorm:"type:uuid;not null"                             json:"student_id"`
	Status             string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | approved | rejected
	LetterRef          *string    `gorm:"type:varchar(255)"                              json:"letter_ref,omitempty"`
	InstructorResponse *string    `gorm:"type:varchar(1000)"                             json:"instructor_response,omitempty"`
	DecidedBy          *string    `gorm:"type:uuid"                                      json:"decided_by,omitempty"`
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
	BaseModel

	AttendanceRecord *AttendanceRecord `gorm:"foreignKey:AttendanceRecordID;references:AttendanceRecordID" json:"attendance_record,omitempty"`
	Student          *Student          `gorm:"foreignKey:StudentID;references:StudentID"                   json:"student,omitempty"`
}

// TableName table name
func (ForgotTimeoutRequest) TableName() string { return "forgot_timeout_requests" }

// IsTerminal approved or rejected
func (r *ForgotTimeoutRequest) IsTerminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}
