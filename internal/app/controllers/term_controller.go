package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// TermController handles academic terms
type TermController struct {
	termService services.TermService
}

// NewTermController creates a new TermController
func NewTermController(termService services.TermService) *TermController {
	return &TermController{termService: termService}
}

// CreateTerm adds a term
// @Summary Create a term
// @Tags terms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TermRequest true "Term data"
// @Success 201 {object} dto.APIResponse{data=models.Term}
// @Router /terms [post]
func (c *TermController) CreateTerm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.TermRequest
	if !bindJSON(ctx, &req) {
		return
	}

	term, err := c.termService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, term)
}

// GetTerm returns one term
// @Summary Get a term
// @Tags terms
// @Produce json
// @Param id path int true "Term ID"
// @Success 200 {object} dto.APIResponse{data=models.Term}
// @Router /terms/{id} [get]
func (c *TermController) GetTerm(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	term, err := c.termService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, term)
}

// GetCurrentTerm returns the term in session today
// @Summary Current term
// @Tags terms
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.Term}
// @Failure 404 {object} dto.APIResponse "No term in session"
// @Router /terms/current [get]
func (c *TermController) GetCurrentTerm(ctx *gin.Context) {
	term, err := c.termService.Current(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, term)
}

// ListTerms pages through terms, newest first
// @Summary List terms
// @Tags terms
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /terms [get]
func (c *TermController) ListTerms(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)

	terms, total, err := c.termService.List(ctx.Request.Context(), page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, helpers.NewPaginatedResponse(terms, total, page))
}

// UpdateTerm edits a term's dates
// @Summary Update a term
// @Tags terms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Term ID"
// @Param request body dto.TermRequest true "Term data"
// @Success 200 {object} dto.APIResponse{data=models.Term}
// @Router /terms/{id} [put]
func (c *TermController) UpdateTerm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.TermRequest
	if !bindJSON(ctx, &req) {
		return
	}

	term, err := c.termService.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, term)
}
