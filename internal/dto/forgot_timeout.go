package dto

// ── forgot time-out DTOs ──

// Decisions
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// CreateForgotTimeoutRequest student submission
type CreateForgotTimeoutRequest struct {
	AttendanceRecordID string  `json:"attendance_record_id" binding:"required"`
	LetterRef          *string `json:"letter_ref"           binding:"omitempty,max=255"`
}

// ForgotTimeoutCreated creation result
type ForgotTimeoutCreated struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// ListForgotTimeoutRequests instructor listing query
type ListForgotTimeoutRequests struct {
	Status string `form:"status"` // all | pending | approved | rejected
	PaginationRequest
}

// RequestSummary request joined with student and block context
type RequestSummary struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	StudentID          string `json:"student_id"`
	StudentName        string `json:"student_name,omitempty"`
	StudentNumber      string `json:"student_number,omitempty"`
	SectionName        string `json:"section_name,omitempty"`
	AttendanceRecordID string `json:"attendance_record_id"`
	Date               string `json:"date,omitempty"`
	BlockType          string `json:"block_type,omitempty"`
	TimeIn             string `json:"time_in,omitempty"`
	LetterRef          string `json:"letter_ref,omitempty"`
	InstructorResponse string `json:"instructor_response,omitempty"`
	DecidedBy          string `json:"decided_by,omitempty"`
	DecidedAt          string `json:"decided_at,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// DecisionRequest single decision payload
type DecisionRequest struct {
	Decision string  `json:"decision" binding:"required,oneof=approve reject"`
	Response *string `json:"response" binding:"omitempty,max=1000"`
}

// DecisionResult single decision outcome
type DecisionResult struct {
	RequestID        string `json:"request_id"`
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	TimeOut          string `json:"time_out,omitempty"`
	HoursEarned      string `json:"hours_earned,omitempty"`
	Anomalous        bool   `json:"anomalous,omitempty"`
	AccumulatedHours string `json:"accumulated_hours,omitempty"`
}

// BulkDecisionRequest bulk decision payload
type BulkDecisionRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required,min=1"`
	Decision   string   `json:"decision"    binding:"required,oneof=approve reject"`
	Response   *string  `json:"response"    binding:"omitempty,max=1000"`
}

// BulkItemError one failed item of a bulk decision
type BulkItemError struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BulkDecisionResult bulk decision summary
type BulkDecisionResult struct {
	ProcessedCount int             `json:"processed_count"`
	TotalCount     int             `json:"total_count"`
	Errors         []BulkItemError `json:"errors"`
}
