package dto

// CreateInstructorRequest represents instructor creation data
type CreateInstructorRequest struct {
	UserID       *int64 `json:"userId,omitempty" binding:"omitempty,gt=0"`
	FirstName    string `json:"firstName" binding:"required,max=100"`
	LastName     string `json:"lastName" binding:"required,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Title        string `json:"title" binding:"required,max=100" example:"Associate Professor"`
	DepartmentID int64  `json:"departmentId" binding:"required,gt=0"`
}

// UpdateInstructorRequest represents instructor update data
type UpdateInstructorRequest struct {
	FirstName    string `json:"firstName" binding:"required,max=100"`
	LastName     string `json:"lastName" binding:"required,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Title        string `json:"title" binding:"required,max=100"`
	DepartmentID int64  `json:"departmentId" binding:"required,gt=0"`
}
