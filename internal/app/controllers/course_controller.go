package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// CourseController handles the course catalog
type CourseController struct {
	courseService services.CourseService
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

// CreateCourse adds a catalog course
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course data"
// @Success 201 {object} dto.APIResponse{data=models.Course}
// @Failure 409 {object} dto.APIResponse "Course code already exists"
// @Router /courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, course)
}

// GetCourse returns a course with its prerequisites
// @Summary Get a course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.courseService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course)
}

// ListCourses pages through the catalog
// @Summary List courses
// @Tags courses
// @Produce json
// @Param departmentId query int false "Department filter"
// @Param isActive query bool false "Active filter"
// @Param search query string false "Code or title"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	var filter dto.CourseFilterRequest
	if !bindQuery(ctx, &filter) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)

	courses, total, err := c.courseService.List(ctx.Request.Context(), &filter, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, helpers.NewPaginatedResponse(courses, total, page))
}

// UpdateCourse edits a catalog course
// @Summary Update a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.UpdateCourseRequest true "Course data"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Router /courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course)
}

// DeleteCourse removes a course, or deactivates it when sections reference it
// @Summary Delete a course
// @Tags courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Course deactivated"
// @Success 204 "Course deleted"
// @Router /courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	deactivated, err := c.courseService.Delete(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if deactivated {
		respondOK(ctx, dto.SuccessResponse{Message: "Course has sections and was deactivated"})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SetPrerequisites replaces a course's prerequisite set
// @Summary Set prerequisites
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.SetPrerequisitesRequest true "Prerequisites"
// @Success 200 {object} dto.APIResponse{data=[]models.Prerequisite}
// @Router /courses/{id}/prerequisites [put]
func (c *CourseController) SetPrerequisites(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SetPrerequisitesRequest
	if !bindJSON(ctx, &req) {
		return
	}

	prereqs, err := c.courseService.SetPrerequisites(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, prereqs)
}
