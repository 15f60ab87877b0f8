package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/logger"
)

// errorRule maps a sentinel error to its HTTP status and API code
type errorRule struct {
	target error
	status int
	code   dto.ErrorCode
}

// Specific sentinels come before the generic ones they might wrap.
var errorRules = []errorRule{
	// authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},

	// enrollment
	{apperrors.ErrSectionNotOpen, http.StatusConflict, dto.ErrorCodeSectionNotOpen},
	{apperrors.ErrSectionFull, http.StatusConflict, dto.ErrorCodeSectionFull},
	{apperrors.ErrRegistrationClosed, http.StatusConflict, dto.ErrorCodeRegistrationClosed},
	{apperrors.ErrAlreadyEnrolled, http.StatusConflict, dto.ErrorCodeAlreadyEnrolled},
	{apperrors.ErrPrerequisitesNotMet, http.StatusUnprocessableEntity, dto.ErrorCodePrerequisitesNotMet},
	{apperrors.ErrScheduleConflict, http.StatusConflict, dto.ErrorCodeScheduleConflict},
	{apperrors.ErrCreditLimitExceeded, http.StatusUnprocessableEntity, dto.ErrorCodeCreditLimitExceeded},
	{apperrors.ErrDropDeadlinePassed, http.StatusConflict, dto.ErrorCodeDropDeadlinePassed},
	{apperrors.ErrInvalidEnrollmentState, http.StatusConflict, dto.ErrorCodeInvalidState},
	{apperrors.ErrStudentNotActive, http.StatusUnprocessableEntity, dto.ErrorCodeStudentNotActive},
	{apperrors.ErrCapacityBelowEnrolled, http.StatusConflict, dto.ErrorCodeCapacityBelowEnrolled},

	// scheduling
	{apperrors.ErrRoomTooSmall, http.StatusUnprocessableEntity, dto.ErrorCodeRoomTooSmall},
	{apperrors.ErrRoomConflict, http.StatusConflict, dto.ErrorCodeRoomConflict},
	{apperrors.ErrInstructorConflict, http.StatusConflict, dto.ErrorCodeInstructorConflict},
	{apperrors.ErrRoomInactive, http.StatusUnprocessableEntity, dto.ErrorCodeRoomInactive},
	{apperrors.ErrInvalidMeetingWindow, http.StatusBadRequest, dto.ErrorCodeValidationFailed},

	// billing
	{apperrors.ErrNothingToBill, http.StatusUnprocessableEntity, dto.ErrorCodeNothingToBill},
	{apperrors.ErrInvoiceNotOpen, http.StatusConflict, dto.ErrorCodeInvoiceNotOpen},
	{apperrors.ErrOverpayment, http.StatusUnprocessableEntity, dto.ErrorCodeOverpayment},
	{apperrors.ErrInvoiceHasPayments, http.StatusConflict, dto.ErrorCodeInvoiceHasPayments},

	// catalog
	{apperrors.ErrCourseInactive, http.StatusUnprocessableEntity, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrCoursePrerequisiteLoop, http.StatusUnprocessableEntity, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrDepartmentHasRelations, http.StatusConflict, dto.ErrorCodeResourceInUse},

	// not found
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrDepartmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrInstructorNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrTermNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrRoomNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrSectionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrEnrollmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrMeetingNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrInvoiceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},

	// already exists
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrStudentNumberAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrDepartmentAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrCourseAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrTermAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrRoomAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrSectionAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrInvoiceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},

	// generic
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}

		message := apperrors.MessageOf(err)
		if message == "" {
			message = err.Error()
		}
		errorDetail := dto.NewErrorDetail(rule.code, message)
		if details := apperrors.DetailsOf(err); len(details) > 0 {
			errorDetail = errorDetail.WithDetails(details)
		}
		if rule.status < http.StatusInternalServerError {
			errorDetail = errorDetail.WithSeverity(dto.ErrorSeverityWarning)
		}

		c.JSON(rule.status, dto.NewErrorResponse(errorDetail))
		return
	}

	logger.FromContext(c.Request.Context()).Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
	))
}

// RespondBindingError writes the 400 envelope for a failed ShouldBind call.
func RespondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}
