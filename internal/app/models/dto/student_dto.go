package dto

// CreateStudentRequest represents student creation data
type CreateStudentRequest struct {
	StudentNumber  string `json:"studentNumber" binding:"required,len=8,numeric" example:"20250001"`
	FirstName      string `json:"firstName" binding:"required,max=100"`
	LastName       string `json:"lastName" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	DepartmentID   int64  `json:"departmentId" binding:"required,gt=0"`
	UserID         *int64 `json:"userId,omitempty" binding:"omitempty,gt=0"`
	EnrollmentDate string `json:"enrollmentDate,omitempty" binding:"omitempty,datetime=2006-01-02" example:"2025-09-01"`
}

// UpdateStudentRequest represents student update data
type UpdateStudentRequest struct {
	StudentNumber string `json:"studentNumber" binding:"required,len=8,numeric"`
	FirstName     string `json:"firstName" binding:"required,max=100"`
	LastName      string `json:"lastName" binding:"required,max=100"`
	Email         string `json:"email" binding:"required,email"`
	DepartmentID  int64  `json:"departmentId" binding:"required,gt=0"`
}

// ChangeStudentStatusRequest moves a student between lifecycle states
type ChangeStudentStatusRequest struct {
	Status string `json:"status" binding:"required" example:"SUSPENDED"`
}

// StudentFilterRequest represents student list query parameters
type StudentFilterRequest struct {
	DepartmentID *int64 `form:"departmentId" binding:"omitempty,gt=0"`
	Status       string `form:"status"`
	Search       string `form:"search" binding:"max=100"`
}
