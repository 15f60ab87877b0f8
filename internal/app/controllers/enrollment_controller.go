package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
)

// EnrollmentController handles registration, drops and rosters
type EnrollmentController struct {
	enrollmentService services.EnrollmentService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{enrollmentService: enrollmentService}
}

// Enroll registers a student in a section, or on its waitlist when it is full
// @Summary Enroll in a section
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EnrollRequest true "Enrollment"
// @Success 201 {object} dto.APIResponse{data=models.Enrollment}
// @Failure 409 {object} dto.APIResponse "Section full, schedule conflict or already enrolled"
// @Failure 422 {object} dto.APIResponse "Prerequisites or credit limit"
// @Router /enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if !bindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.enrollmentService.Enroll(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, enrollment)
}

// Drop withdraws an enrollment and promotes the head of the waitlist
// @Summary Drop an enrollment
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment}
// @Failure 409 {object} dto.APIResponse "Drop deadline passed"
// @Router /enrollments/{id}/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.enrollmentService.Drop(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, enrollment)
}

// StudentEnrollments lists a student's enrollments, optionally for one term
// @Summary Student enrollments
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param termId query int false "Term filter"
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment}
// @Router /students/{id}/enrollments [get]
func (c *EnrollmentController) StudentEnrollments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var filter dto.EnrollmentFilterRequest
	if !bindQuery(ctx, &filter) {
		return
	}

	enrollments, err := c.enrollmentService.StudentEnrollments(ctx.Request.Context(), actor, studentID, filter.TermID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, enrollments)
}

// SectionRoster lists enrolled and waitlisted students of a section
// @Summary Section roster
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment}
// @Router /sections/{id}/roster [get]
func (c *EnrollmentController) SectionRoster(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	roster, err := c.enrollmentService.SectionRoster(ctx.Request.Context(), actor, sectionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, roster)
}
