package models

import (
	"fmt"
	"strings"
	"time"
)

// StudentStatus is the lifecycle state of a student record
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
	StudentStatusGraduated StudentStatus = "GRADUATED"
	StudentStatusWithdrawn StudentStatus = "WITHDRAWN"
)

// ParseStudentStatus parses a status name case-insensitively.
func ParseStudentStatus(s string) (StudentStatus, error) {
	switch st := StudentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StudentStatusActive, StudentStatusSuspended, StudentStatusGraduated, StudentStatusWithdrawn:
		return st, nil
	}
	return "", fmt.Errorf("unknown student status %q", s)
}

// Student defines the student model based on the 'students' table
type Student struct {
	ID             int64         `json:"id" db:"id" example:"1"`
	UserID         *int64        `json:"userId,omitempty" db:"user_id" example:"5"`
	StudentNumber  string        `json:"studentNumber" db:"student_number" example:"20250001"`
	FirstName      string        `json:"firstName" db:"first_name" example:"Ada"`
	LastName       string        `json:"lastName" db:"last_name" example:"Lovelace"`
	Email          string        `json:"email" db:"email" example:"ada@student.universys.edu"`
	DepartmentID   int64         `json:"departmentId" db:"department_id" example:"1"`
	Status         StudentStatus `json:"status" db:"status" example:"ACTIVE"`
	EnrollmentDate time.Time     `json:"enrollmentDate" db:"enrollment_date"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`

	// Relations (populated when needed)
	Department *Department `json:"department,omitempty"`
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	DepartmentID *int64
	Status       *StudentStatus
	Search       string
}
