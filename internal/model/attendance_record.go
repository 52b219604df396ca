package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BlockType attendance block
type BlockType string

const (
	BlockMorning   BlockType = "morning"
	BlockAfternoon BlockType = "afternoon"
	BlockOvertime  BlockType = "overtime"
)

// Valid reports whether b is one of the known blocks.
func (b BlockType) Valid() bool {
	switch b {
	case BlockMorning, BlockAfternoon, BlockOvertime:
		return true
	}
	return false
}

// AttendanceRecord maps attendance_records, one row per (student, date, block).
// HoursEarned is 0 while the record is open and derived when TimeOut is set.
type AttendanceRecord struct {
	AttendanceRecordID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_record_id"`
	StudentID          string          `gorm:"type:uuid;not null"                             json:"student_id"`
	AttendanceDate     time.Time       `gorm:"type:date;not null"                             json:"attendance_date"`
	BlockType          BlockType       `gorm:"type:varchar(20);not null"                      json:"block_type"`
	TimeIn             *time.Time      `json:"time_in,omitempty"`
	TimeOut            *time.Time      `json:"time_out,omitempty"`
	HoursEarned        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"           json:"hours_earned"`
	PhotoRef           *string         `gorm:"type:varchar(255)"                              json:"photo_ref,omitempty"`
	Latitude           *float64        `json:"latitude,omitempty"`
	Longitude          *float64        `json:"longitude,omitempty"`
	BaseModel

	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName table name
func (AttendanceRecord) TableName() string { return "attendance_records" }

// IsOpen time-in recorded, time-out missing
func (r *AttendanceRecord) IsOpen() bool {
	return r.TimeIn != nil && r.TimeOut == nil
}

// IsCompleted both time-in and time-out recorded
func (r *AttendanceRecord) IsCompleted() bool {
	return r.TimeIn != nil && r.TimeOut != nil
}
