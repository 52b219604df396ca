package dto

// ── attendance DTOs ──

// SessionCheckRequest concurrent session check query
type SessionCheckRequest struct {
	BlockType string `form:"block_type" binding:"required"`
	Date      string `form:"date"` // "2025-01-10"; defaults to today
	StudentID string `form:"student_id"`
}

// SessionCheckResult concurrency guard decision
type SessionCheckResult struct {
	Allowed    bool   `json:"allowed"`
	ReasonCode string `json:"reason_code,omitempty"`
	Message    string `json:"message"`
}

// BlockHoursRequest block-hours preview query
type BlockHoursRequest struct {
	TimeIn    string `form:"time_in"    binding:"required"` // RFC3339
	BlockType string `form:"block_type" binding:"required"`
}

// BlockHoursResult calculator output
type BlockHoursResult struct {
	TimeOut     string `json:"time_out"`
	BlockEnd    string `json:"block_end"`
	HoursEarned string `json:"hours_earned"`
	Anomalous   bool   `json:"anomalous"`
}

// TimeInRequest time-in payload. Capture metadata is stored as-is.
type TimeInRequest struct {
	BlockType string   `json:"block_type" binding:"required"`
	PhotoRef  *string  `json:"photo_ref"  binding:"omitempty,max=255"`
	Latitude  *float64 `json:"latitude"   binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude"  binding:"omitempty,min=-180,max=180"`
}

// TimeOutRequest time-out payload
type TimeOutRequest struct {
	BlockType string `json:"block_type" binding:"required"`
}

// AttendanceRecordResponse attendance record view
type AttendanceRecordResponse struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	Date             string `json:"date"`
	BlockType        string `json:"block_type"`
	TimeIn           string `json:"time_in,omitempty"`
	TimeOut          string `json:"time_out,omitempty"`
	HoursEarned      string `json:"hours_earned"`
	Anomalous        bool   `json:"anomalous,omitempty"`
	AccumulatedHours string `json:"accumulated_hours,omitempty"`
}
