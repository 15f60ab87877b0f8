package dto

// CreateCourseRequest represents catalog course creation data
type CreateCourseRequest struct {
	DepartmentID int64   `json:"departmentId" binding:"required,gt=0"`
	Code         string  `json:"code" binding:"required,max=9" example:"CS101"`
	Title        string  `json:"title" binding:"required,max=200" example:"Introduction to Programming"`
	Description  *string `json:"description,omitempty" binding:"omitempty,max=2000"`
	Credits      int     `json:"credits" binding:"required,min=1,max=6" example:"3"`
}

// UpdateCourseRequest represents catalog course update data
type UpdateCourseRequest struct {
	Code        string  `json:"code" binding:"required,max=9"`
	Title       string  `json:"title" binding:"required,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=2000"`
	Credits     int     `json:"credits" binding:"required,min=1,max=6"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// PrerequisiteInput is one required course with its minimum grade
type PrerequisiteInput struct {
	PrerequisiteID int64  `json:"prerequisiteId" binding:"required,gt=0"`
	MinimumGrade   string `json:"minimumGrade,omitempty" binding:"omitempty,grade" example:"C"`
}

// SetPrerequisitesRequest replaces a course's prerequisite set
type SetPrerequisitesRequest struct {
	Prerequisites []PrerequisiteInput `json:"prerequisites" binding:"omitempty,dive"`
}

// CourseFilterRequest represents catalog list query parameters
type CourseFilterRequest struct {
	DepartmentID *int64 `form:"departmentId" binding:"omitempty,gt=0"`
	IsActive     *bool  `form:"isActive"`
	Search       string `form:"search" binding:"max=100"`
}

// TermRequest represents term creation and update data. Dates are YYYY-MM-DD.
type TermRequest struct {
	Code              string `json:"code" binding:"required,max=20" example:"2025FA"`
	Name              string `json:"name" binding:"required,max=100" example:"Fall 2025"`
	StartDate         string `json:"startDate" binding:"required,datetime=2006-01-02" example:"2025-09-01"`
	EndDate           string `json:"endDate" binding:"required,datetime=2006-01-02" example:"2025-12-19"`
	RegistrationStart string `json:"registrationStart" binding:"required,datetime=2006-01-02" example:"2025-08-01"`
	RegistrationEnd   string `json:"registrationEnd" binding:"required,datetime=2006-01-02" example:"2025-09-10"`
	DropDeadline      string `json:"dropDeadline" binding:"required,datetime=2006-01-02" example:"2025-10-01"`
}

// RoomRequest represents room creation and update data
type RoomRequest struct {
	Building string `json:"building" binding:"required,max=50" example:"ENG"`
	Number   string `json:"number" binding:"required,max=20" example:"101"`
	Capacity int    `json:"capacity" binding:"required,gt=0" example:"40"`
	RoomType string `json:"roomType" binding:"required" example:"LECTURE"`
	IsActive *bool  `json:"isActive,omitempty"`
}
