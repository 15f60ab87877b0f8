package models

import "time"

// EnrollmentStatus is the state of a student's registration in a section
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
)

// IsActive reports whether the row holds a seat or a waitlist place.
func (s EnrollmentStatus) IsActive() bool {
	return s == EnrollmentStatusEnrolled || s == EnrollmentStatusWaitlisted
}

// Enrollment links a student to a section.
type Enrollment struct {
	ID               int64            `json:"id" db:"id"`
	StudentID        int64            `json:"studentId" db:"student_id"`
	SectionID        int64            `json:"sectionId" db:"section_id"`
	Status           EnrollmentStatus `json:"status" db:"status"`
	WaitlistPosition *int             `json:"waitlistPosition,omitempty" db:"waitlist_position"`
	Grade            *Grade           `json:"grade,omitempty" db:"grade"`
	EnrolledAt       time.Time        `json:"enrolledAt" db:"enrolled_at"`
	DroppedAt        *time.Time       `json:"droppedAt,omitempty" db:"dropped_at"`
	GradedAt         *time.Time       `json:"gradedAt,omitempty" db:"graded_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`

	// Populated by joins
	CourseID      int64  `json:"courseId,omitempty"`
	CourseCode    string `json:"courseCode,omitempty"`
	CourseTitle   string `json:"courseTitle,omitempty"`
	Credits       int    `json:"credits,omitempty"`
	TermID        int64  `json:"termId,omitempty"`
	TermCode      string `json:"termCode,omitempty"`
	SectionNumber string `json:"sectionNumber,omitempty"`
	StudentName   string `json:"studentName,omitempty"`
	StudentNumber string `json:"studentNumber,omitempty"`
}

// GradeRecord is a graded attempt used for transcripts and prerequisite checks.
type GradeRecord struct {
	EnrollmentID  int64
	CourseID      int64
	CourseCode    string
	CourseTitle   string
	Credits       int
	Grade         Grade
	TermID        int64
	TermCode      string
	TermName      string
	TermStartDate time.Time
	GradedAt      time.Time
}
