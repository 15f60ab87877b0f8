package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Grade is a letter grade recorded on a completed enrollment.
type Grade string

const (
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeF      Grade = "F"

	// Pass: credits earned, excluded from GPA
	GradePass Grade = "P"
	// Withdrawn: not attempted
	GradeWithdrawn Grade = "W"
	// Incomplete: not attempted until replaced
	GradeIncomplete Grade = "I"
)

var gradePoints = map[Grade]decimal.Decimal{
	GradeA:      decimal.RequireFromString("4.0"),
	GradeAMinus: decimal.RequireFromString("3.7"),
	GradeBPlus:  decimal.RequireFromString("3.3"),
	GradeB:      decimal.RequireFromString("3.0"),
	GradeBMinus: decimal.RequireFromString("2.7"),
	GradeCPlus:  decimal.RequireFromString("2.3"),
	GradeC:      decimal.RequireFromString("2.0"),
	GradeCMinus: decimal.RequireFromString("1.7"),
	GradeDPlus:  decimal.RequireFromString("1.3"),
	GradeD:      decimal.RequireFromString("1.0"),
	GradeF:      decimal.Zero,
}

// passSatisfiesUpTo is the highest minimum a P grade can satisfy.
var passSatisfiesUpTo = gradePoints[GradeC]

// ParseGrade normalizes and validates a letter grade.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := gradePoints[g]; ok {
		return g, nil
	}
	switch g {
	case GradePass, GradeWithdrawn, GradeIncomplete:
		return g, nil
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// ParseGPAGrade accepts only grades that carry grade points.
func ParseGPAGrade(s string) (Grade, error) {
	g, err := ParseGrade(s)
	if err != nil {
		return "", err
	}
	if !g.CountsInGPA() {
		return "", fmt.Errorf("grade %q carries no grade points", s)
	}
	return g, nil
}

// CountsInGPA reports whether the grade contributes grade points.
func (g Grade) CountsInGPA() bool {
	_, ok := gradePoints[g]
	return ok
}

// Points returns the grade points, zero for non-GPA grades.
func (g Grade) Points() decimal.Decimal {
	return gradePoints[g]
}

// EarnsCredit reports whether the course credits are earned with this grade.
func (g Grade) EarnsCredit() bool {
	switch g {
	case GradeF, GradeWithdrawn, GradeIncomplete, "":
		return false
	}
	return true
}

// Satisfies reports whether g meets a prerequisite minimum grade.
func (g Grade) Satisfies(minimum Grade) bool {
	if minimum == "" {
		minimum = GradeD
	}
	if g == GradePass {
		return minimum.Points().LessThanOrEqual(passSatisfiesUpTo)
	}
	if !g.CountsInGPA() {
		return false
	}
	return g.Points().GreaterThanOrEqual(minimum.Points())
}
