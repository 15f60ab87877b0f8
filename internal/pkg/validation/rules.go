package validation

import (
	"regexp"
	"strings"
)

// Validation rule patterns
var (
	// EmailPattern accepts lower-case addresses; inputs are lower-cased first
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// StudentNumberPattern is 8 digits
	StudentNumberPattern = `^\d{8}$`

	// CourseCodePattern is 2-5 upper-case letters followed by 3-4 digits, e.g. CS101
	CourseCodePattern = `^[A-Z]{2,5}[0-9]{3,4}$`

	// DepartmentCodePattern is upper-case alphanumeric
	DepartmentCodePattern = `^[A-Z0-9]{2,10}$`

	// TermCodePattern is a year followed by a season code, e.g. 2025FA
	TermCodePattern = `^[0-9]{4}[A-Z]{2,4}$`

	// AcademicTitlePattern allows letters, spaces, dots and hyphens
	AcademicTitlePattern = `^[\p{L} .\-]+$`

	// PasswordMinLength is the minimum password length
	PasswordMinLength = 8

	// Name validation min/max length
	NameMinLength = 1
	NameMaxLength = 100

	// TitleMaxLength bounds academic titles
	TitleMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email          *regexp.Regexp
	StudentNumber  *regexp.Regexp
	CourseCode     *regexp.Regexp
	DepartmentCode *regexp.Regexp
	TermCode       *regexp.Regexp
	AcademicTitle  *regexp.Regexp
}{
	Email:          regexp.MustCompile(EmailPattern),
	StudentNumber:  regexp.MustCompile(StudentNumberPattern),
	CourseCode:     regexp.MustCompile(CourseCodePattern),
	DepartmentCode: regexp.MustCompile(DepartmentCodePattern),
	TermCode:       regexp.MustCompile(TermCodePattern),
	AcademicTitle:  regexp.MustCompile(AcademicTitlePattern),
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCode trims and upper-cases a catalog code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// StringValidation checks a single string field
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation. Lengths count runes.
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}
	if !v.Required && v.Value == "" {
		return true
	}

	n := len([]rune(v.Value))
	if v.MinLen > 0 && n < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && n > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// IsValidEmail reports whether s is a well-formed address after normalization.
func IsValidEmail(s string) bool {
	return NewStringValidation(NormalizeEmail(s)).WithMaxLength(254).WithPattern(CompiledPatterns.Email).Validate()
}

// IsValidName reports whether s is a non-blank person name within bounds.
func IsValidName(s string) bool {
	return NewStringValidation(strings.TrimSpace(s)).
		WithMinLength(NameMinLength).
		WithMaxLength(NameMaxLength).
		Validate()
}

// IsValidAcademicTitle reports whether s is an acceptable academic title.
func IsValidAcademicTitle(s string) bool {
	return NewStringValidation(strings.TrimSpace(s)).
		WithMaxLength(TitleMaxLength).
		WithPattern(CompiledPatterns.AcademicTitle).
		Validate()
}
