package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AcademicStanding summarizes cumulative performance
type AcademicStanding string

const (
	StandingNone      AcademicStanding = "NONE"
	StandingGood      AcademicStanding = "GOOD"
	StandingProbation AcademicStanding = "PROBATION"
)

// Transcript is the computed academic record of a student.
type Transcript struct {
	StudentID             int64            `json:"studentId"`
	StudentNumber         string           `json:"studentNumber"`
	StudentName           string           `json:"studentName"`
	Terms                 []TranscriptTerm `json:"terms"`
	CumulativeGPA         decimal.Decimal  `json:"cumulativeGpa"`
	TotalCreditsAttempted int              `json:"totalCreditsAttempted"`
	TotalCreditsEarned    int              `json:"totalCreditsEarned"`
	Standing              AcademicStanding `json:"standing"`
}

// TranscriptTerm groups the graded courses of one term.
type TranscriptTerm struct {
	TermID           int64              `json:"termId"`
	TermCode         string             `json:"termCode"`
	TermName         string             `json:"termName"`
	Courses          []TranscriptCourse `json:"courses"`
	TermGPA          decimal.Decimal    `json:"termGpa"`
	CreditsAttempted int                `json:"creditsAttempted"`
	CreditsEarned    int                `json:"creditsEarned"`
}

// TranscriptCourse is one graded attempt on a transcript.
type TranscriptCourse struct {
	CourseID    int64           `json:"courseId"`
	CourseCode  string          `json:"courseCode"`
	CourseTitle string          `json:"courseTitle"`
	Credits     int             `json:"credits"`
	Grade       Grade           `json:"grade"`
	// Points is nil for grades that carry no grade points (P, W, I)
	Points *decimal.Decimal `json:"points"`
	// Repeated is set on attempts superseded by a later attempt of the same course
	Repeated bool `json:"repeated"`
}

// MarshalJSON renders the cumulative GPA with two decimals.
func (t Transcript) MarshalJSON() ([]byte, error) {
	type alias Transcript
	return json.Marshal(struct {
		alias
		CumulativeGPA string `json:"cumulativeGpa"`
	}{alias(t), fixed2(t.CumulativeGPA)})
}

// MarshalJSON renders the term GPA with two decimals.
func (t TranscriptTerm) MarshalJSON() ([]byte, error) {
	type alias TranscriptTerm
	return json.Marshal(struct {
		alias
		TermGPA string `json:"termGpa"`
	}{alias(t), fixed2(t.TermGPA)})
}

// MarshalJSON renders grade points with two decimals, or null when there are none.
func (c TranscriptCourse) MarshalJSON() ([]byte, error) {
	type alias TranscriptCourse
	var points *string
	if c.Points != nil {
		p := fixed2(*c.Points)
		points = &p
	}
	return json.Marshal(struct {
		alias
		Points *string `json:"points"`
	}{alias(c), points})
}
