package models

import (
	"fmt"
	"time"
)

// SectionStatus is the registration state of a section
type SectionStatus string

const (
	SectionStatusOpen      SectionStatus = "OPEN"
	SectionStatusClosed    SectionStatus = "CLOSED"
	SectionStatusCancelled SectionStatus = "CANCELLED"
)

// Section is one offering of a course in a term.
type Section struct {
	ID               int64         `json:"id" db:"id"`
	CourseID         int64         `json:"courseId" db:"course_id"`
	TermID           int64         `json:"termId" db:"term_id"`
	SectionNumber    string        `json:"sectionNumber" db:"section_number" example:"001"`
	InstructorID     *int64        `json:"instructorId,omitempty" db:"instructor_id"`
	Capacity         int           `json:"capacity" db:"capacity"`
	EnrolledCount    int           `json:"enrolledCount" db:"enrolled_count"`
	WaitlistCapacity int           `json:"waitlistCapacity" db:"waitlist_capacity"`
	WaitlistCount    int           `json:"waitlistCount" db:"waitlist_count"`
	Status           SectionStatus `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at"`

	// Populated by joins
	CourseCode  string `json:"courseCode,omitempty"`
	CourseTitle string `json:"courseTitle,omitempty"`
	Credits     int    `json:"credits,omitempty"`
	TermCode    string `json:"termCode,omitempty"`
}

// HasSeat reports whether a seat is free.
func (s *Section) HasSeat() bool {
	return s.EnrolledCount < s.Capacity
}

// HasWaitlistRoom reports whether the waitlist can take another student.
func (s *Section) HasWaitlistRoom() bool {
	return s.WaitlistCount < s.WaitlistCapacity
}

// SectionFilter narrows section listings.
type SectionFilter struct {
	TermID       *int64
	CourseID     *int64
	InstructorID *int64
	Status       *SectionStatus
}

// Meeting is a weekly time slot of a section in a room.
// Times are minutes after midnight; the interval is half-open [Start, End).
type Meeting struct {
	ID          int64 `json:"id" db:"id"`
	SectionID   int64 `json:"sectionId" db:"section_id"`
	RoomID      int64 `json:"roomId" db:"room_id"`
	DayOfWeek   int   `json:"dayOfWeek" db:"day_of_week"`
	StartMinute int   `json:"startMinute" db:"start_minute"`
	EndMinute   int   `json:"endMinute" db:"end_minute"`

	// Populated by joins
	TermID    int64  `json:"termId,omitempty"`
	RoomLabel string `json:"roomLabel,omitempty"`
}

// Overlaps reports whether two meetings share a day and any minute.
func (m Meeting) Overlaps(o Meeting) bool {
	return m.DayOfWeek == o.DayOfWeek && m.StartMinute < o.EndMinute && o.StartMinute < m.EndMinute
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseClock parses a 24-hour HH:MM time into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
