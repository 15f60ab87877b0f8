package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Student errors
var (
	ErrStudentNotFound            = errors.New("student not found")
	ErrStudentNumberAlreadyExists = errors.New("student number already exists")
	ErrStudentNotActive           = errors.New("student is not active")
)

// Department errors
var (
	ErrDepartmentNotFound      = errors.New("department not found")
	ErrDepartmentAlreadyExists = errors.New("department with this name or code already exists")
	ErrDepartmentHasRelations  = errors.New("department has associated data and cannot be deleted")
)

// Catalog errors
var (
	ErrInstructorNotFound     = errors.New("instructor not found")
	ErrCourseNotFound         = errors.New("course not found")
	ErrCourseAlreadyExists    = errors.New("course with this code already exists")
	ErrCourseInactive         = errors.New("course is not active")
	ErrCoursePrerequisiteLoop = errors.New("course prerequisites would form a cycle")
	ErrTermNotFound           = errors.New("term not found")
	ErrTermAlreadyExists      = errors.New("term with this code already exists")
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomAlreadyExists      = errors.New("room already exists in this building")
	ErrSectionNotFound        = errors.New("section not found")
	ErrSectionAlreadyExists   = errors.New("section already exists for this course and term")
)

// Registration errors
var (
	ErrSectionNotOpen         = errors.New("section is not open for registration")
	ErrSectionFull            = errors.New("section and its waitlist are full")
	ErrRegistrationClosed     = errors.New("registration window is closed")
	ErrAlreadyEnrolled        = errors.New("student is already registered for this course in this term")
	ErrPrerequisitesNotMet    = errors.New("course prerequisites are not satisfied")
	ErrScheduleConflict       = errors.New("section meets at the same time as another enrolled section")
	ErrCreditLimitExceeded    = errors.New("term credit limit exceeded")
	ErrEnrollmentNotFound     = errors.New("enrollment not found")
	ErrInvalidEnrollmentState = errors.New("enrollment is not in a state that allows this operation")
	ErrDropDeadlinePassed     = errors.New("drop deadline has passed")
	ErrCapacityBelowEnrolled  = errors.New("capacity cannot be lower than the current enrolled count")
)

// Scheduling errors
var (
	ErrRoomTooSmall         = errors.New("room capacity is smaller than section capacity")
	ErrRoomConflict         = errors.New("room is already booked at this time")
	ErrInstructorConflict   = errors.New("instructor already teaches at this time")
	ErrRoomInactive         = errors.New("room is not active")
	ErrMeetingNotFound      = errors.New("meeting not found")
	ErrInvalidMeetingWindow = errors.New("meeting start must be before its end")
)

// Billing errors
var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceAlreadyExists = errors.New("tuition invoice already exists for this term")
	ErrNothingToBill        = errors.New("student has no billable credits in this term")
	ErrInvoiceNotOpen       = errors.New("invoice is not open")
	ErrOverpayment          = errors.New("payment exceeds the outstanding balance")
	ErrInvoiceHasPayments   = errors.New("invoice has payments and cannot be voided")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// DetailsOf extracts CustomError details from anywhere in err's chain.
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// MessageOf returns the CustomError message in err's chain, or "".
func MessageOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ""
}
