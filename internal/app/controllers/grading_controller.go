package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
)

// GradingController handles grade posting and transcripts
type GradingController struct {
	gradingService services.GradingService
}

// NewGradingController creates a new GradingController
func NewGradingController(gradingService services.GradingService) *GradingController {
	return &GradingController{gradingService: gradingService}
}

// PostGrade records a final grade on one enrollment
// @Summary Post a grade
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param request body dto.PostGradeRequest true "Grade"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment}
// @Router /enrollments/{id}/grade [put]
func (c *GradingController) PostGrade(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.PostGradeRequest
	if !bindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.gradingService.PostGrade(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, enrollment)
}

// PostSectionGrades records a whole grade sheet atomically
// @Summary Post section grades
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Param request body dto.SectionGradesRequest true "Grade sheet"
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment}
// @Router /sections/{id}/grades [post]
func (c *GradingController) PostSectionGrades(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SectionGradesRequest
	if !bindJSON(ctx, &req) {
		return
	}

	enrollments, err := c.gradingService.PostSectionGrades(ctx.Request.Context(), actor, sectionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, enrollments)
}

// Transcript returns a student's graded history with term and cumulative GPA
// @Summary Student transcript
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Transcript}
// @Router /students/{id}/transcript [get]
func (c *GradingController) Transcript(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	transcript, err := c.gradingService.Transcript(ctx.Request.Context(), actor, studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, transcript)
}
