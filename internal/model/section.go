package model

// Section maps sections. An instructor supervises the students of the sections they own.
type Section struct {
	SectionID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"section_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	InstructorID string `gorm:"type:uuid;not null"                             json:"instructor_id"`
	BaseModel
}

// TableName table name
func (Section) TableName() string { return "sections" }
