package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OJT profile status values
const (
	OJTStatusOnTrack        = "on_track"
	OJTStatusNeedsAttention = "needs_attention"
	OJTStatusAtRisk         = "at_risk"
)

// Student maps students. AccumulatedHours is a derived cache, recomputed from
// completed attendance records on every write that affects it.
type Student struct {
	StudentID        string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	UserID           string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	StudentNumber    string          `gorm:"type:varchar(30);not null;uniqueIndex"          json:"student_number"`
	FullName         string          `gorm:"type:varchar(150);not null"                     json:"full_name"`
	SectionID        *string         `gorm:"type:uuid"                                      json:"section_id,omitempty"`
	OJTStartDate     *time.Time      `gorm:"column:ojt_start_date;type:date"                json:"ojt_start_date,omitempty"`
	OJTStatus        *string         `gorm:"column:ojt_status;type:varchar(20)"             json:"ojt_status,omitempty"`
	AccumulatedHours decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"           json:"accumulated_hours"`
	BaseModel

	Section *Section `gorm:"foreignKey:SectionID;references:SectionID" json:"section,omitempty"`
}

// TableName table name
func (Student) TableName() string { return "students" }

// HasOJTProfile reports whether the OJT profile has been filled in.
func (s *Student) HasOJTProfile() bool {
	return s.OJTStartDate != nil && s.OJTStatus != nil && *s.OJTStatus != ""
}
