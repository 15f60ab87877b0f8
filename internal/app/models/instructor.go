package models

import "time"

// Instructor defines the instructor model based on the 'instructors' table
type Instructor struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	UserID       *int64    `json:"userId,omitempty" db:"user_id" example:"5"`
	FirstName    string    `json:"firstName" db:"first_name" example:"Alan"`
	LastName     string    `json:"lastName" db:"last_name" example:"Turing"`
	Email        string    `json:"email" db:"email" example:"turing@universys.edu"`
	Title        string    `json:"title" db:"title" example:"Associate Professor"`
	DepartmentID int64     `json:"departmentId" db:"department_id" example:"1"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	Department *Department `json:"department,omitempty"`
}
