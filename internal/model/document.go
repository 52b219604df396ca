package model

// DocumentSubmissionApproved is the only submission status that counts toward compliance.
const DocumentSubmissionApproved = "approved"

// DocumentRequirement maps document_requirements
type DocumentRequirement struct {
	DocumentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	Name       string `gorm:"type:varchar(150);not null"                     json:"name"`
	IsRequired bool   `gorm:"not null;default:true"                          json:"is_required"`
	BaseModel
}

// TableName table name
func (DocumentRequirement) TableName() string { return "document_requirements" }

// DocumentSubmission maps document_submissions. Reviewed elsewhere; read-only here.
type DocumentSubmission struct {
	SubmissionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	StudentID    string `gorm:"type:uuid;not null"                             json:"student_id"`
	DocumentID   string `gorm:"type:uuid;not null"                             json:"document_id"`
	Status       string `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	BaseModel
}

// TableName table name
func (DocumentSubmission) TableName() string { return "document_submissions" }
