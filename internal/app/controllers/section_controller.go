package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// SectionController handles course offerings
type SectionController struct {
	sectionService services.SectionService
}

// NewSectionController creates a new SectionController
func NewSectionController(sectionService services.SectionService) *SectionController {
	return &SectionController{sectionService: sectionService}
}

// CreateSection opens a section of a course in a term
// @Summary Create a section
// @Tags sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSectionRequest true "Section data"
// @Success 201 {object} dto.APIResponse{data=models.Section}
// @Router /sections [post]
func (c *SectionController) CreateSection(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.CreateSectionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	section, err := c.sectionService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, section)
}

// GetSection returns a section with its seat counts
// @Summary Get a section
// @Tags sections
// @Produce json
// @Param id path int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=models.Section}
// @Router /sections/{id} [get]
func (c *SectionController) GetSection(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	section, err := c.sectionService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, section)
}

// ListSections pages through sections
// @Summary List sections
// @Tags sections
// @Produce json
// @Param termId query int false "Term filter"
// @Param courseId query int false "Course filter"
// @Param instructorId query int false "Instructor filter"
// @Param status query string false "OPEN, CLOSED or CANCELLED"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /sections [get]
func (c *SectionController) ListSections(ctx *gin.Context) {
	var filter dto.SectionFilterRequest
	if !bindQuery(ctx, &filter) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)

	sections, total, err := c.sectionService.List(ctx.Request.Context(), &filter, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, helpers.NewPaginatedResponse(sections, total, page))
}

// UpdateCapacity changes seat limits, promoting from the waitlist when seats open
// @Summary Update section capacity
// @Tags sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Param request body dto.UpdateCapacityRequest true "Capacity"
// @Success 200 {object} dto.APIResponse{data=models.Section}
// @Failure 409 {object} dto.APIResponse "Capacity below enrolled count"
// @Router /sections/{id}/capacity [patch]
func (c *SectionController) UpdateCapacity(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCapacityRequest
	if !bindJSON(ctx, &req) {
		return
	}

	section, err := c.sectionService.UpdateCapacity(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, section)
}

// AssignInstructor sets the instructor of a section
// @Summary Assign an instructor
// @Tags sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Param request body dto.AssignInstructorRequest true "Instructor"
// @Success 200 {object} dto.APIResponse{data=models.Section}
// @Failure 409 {object} dto.APIResponse "Instructor already teaches at this time"
// @Router /sections/{id}/instructor [put]
func (c *SectionController) AssignInstructor(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.AssignInstructorRequest
	if !bindJSON(ctx, &req) {
		return
	}

	section, err := c.sectionService.AssignInstructor(ctx.Request.Context(), actor, id, req.InstructorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, section)
}

// SetStatus opens or closes a section for registration
// @Summary Open or close a section
// @Tags sections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Param request body dto.ChangeSectionStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=models.Section}
// @Router /sections/{id}/status [patch]
func (c *SectionController) SetStatus(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ChangeSectionStatusRequest
	if !bindJSON(ctx, &req) {
		return
	}

	section, err := c.sectionService.SetStatus(ctx.Request.Context(), actor, id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, section)
}

// CancelSection cancels a section and drops everyone registered in it
// @Summary Cancel a section
// @Tags sections
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=models.Section}
// @Router /sections/{id}/cancel [post]
func (c *SectionController) CancelSection(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	section, err := c.sectionService.Cancel(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, section)
}
