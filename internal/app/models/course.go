package models

import "time"

// Course represents a catalog course offered by a department.
type Course struct {
	ID           int64     `json:"id" db:"id"`
	DepartmentID int64     `json:"departmentId" db:"department_id"`
	Code         string    `json:"code" db:"code"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Credits      int       `json:"credits" db:"credits"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
	Department    *Department    `json:"department,omitempty"`
}

// Prerequisite is a course that must be completed with at least MinimumGrade.
type Prerequisite struct {
	CourseID         int64  `json:"courseId" db:"course_id"`
	PrerequisiteID   int64  `json:"prerequisiteId" db:"prerequisite_id"`
	PrerequisiteCode string `json:"prerequisiteCode" db:"prerequisite_code"`
	MinimumGrade     Grade  `json:"minimumGrade" db:"minimum_grade"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	DepartmentID *int64
	IsActive     *bool
	Search       string
}
