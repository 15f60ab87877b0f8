package dto

// EnrollRequest registers a student in a section.
// StudentID may be omitted by a student enrolling themselves.
type EnrollRequest struct {
	StudentID int64 `json:"studentId,omitempty" binding:"omitempty,gt=0"`
	SectionID int64 `json:"sectionId" binding:"required,gt=0"`
}

// EnrollmentFilterRequest narrows a student's enrollment list
type EnrollmentFilterRequest struct {
	TermID *int64 `form:"termId" binding:"omitempty,gt=0"`
}

// PostGradeRequest records a grade on one enrollment
type PostGradeRequest struct {
	Grade string `json:"grade" binding:"required,grade" example:"B+"`
}

// SectionGradeInput is one row of a section grade sheet
type SectionGradeInput struct {
	EnrollmentID int64  `json:"enrollmentId" binding:"required,gt=0"`
	Grade        string `json:"grade" binding:"required,grade"`
}

// SectionGradesRequest posts a whole grade sheet at once
type SectionGradesRequest struct {
	Grades []SectionGradeInput `json:"grades" binding:"required,min=1,dive"`
}

// GenerateInvoiceRequest bills a student for a term
type GenerateInvoiceRequest struct {
	StudentID int64 `json:"studentId" binding:"required,gt=0"`
	TermID    int64 `json:"termId" binding:"required,gt=0"`
}

// RecordPaymentRequest records money received against an invoice
type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required,decimal" example:"250.00"`
	Method    string `json:"method" binding:"required,oneof=CARD BANK_TRANSFER CASH" example:"CARD"`
	Reference string `json:"reference,omitempty" binding:"max=100"`
}

// AuditFilterRequest represents audit log query parameters. Dates are YYYY-MM-DD.
type AuditFilterRequest struct {
	EntityType string `form:"entityType" binding:"max=50"`
	EntityID   *int64 `form:"entityId" binding:"omitempty,gt=0"`
	UserID     *int64 `form:"userId" binding:"omitempty,gt=0"`
	Action     string `form:"action" binding:"max=50"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}
