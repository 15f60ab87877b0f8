package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// AuditController exposes the audit trail to staff
type AuditController struct {
	auditService services.AuditService
}

// NewAuditController creates a new AuditController
func NewAuditController(auditService services.AuditService) *AuditController {
	return &AuditController{auditService: auditService}
}

// ListAuditLogs pages through audit entries, newest first
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param entityType query string false "Entity type"
// @Param entityId query int false "Entity ID"
// @Param userId query int false "Acting user"
// @Param action query string false "Action"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /audit-logs [get]
func (c *AuditController) ListAuditLogs(ctx *gin.Context) {
	var req dto.AuditFilterRequest
	if !bindQuery(ctx, &req) {
		return
	}

	filter, err := auditFilter(&req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	page := helpers.ParsePaginationParams(ctx)

	logs, total, err := c.auditService.List(ctx.Request.Context(), filter, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, helpers.NewPaginatedResponse(logs, total, page))
}

// auditFilter converts query dates into a half-open [from, to+1d) window.
func auditFilter(req *dto.AuditFilterRequest) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		UserID:     req.UserID,
		Action:     req.Action,
	}

	from, err := helpers.ParseOptionalDate("from", req.From)
	if err != nil {
		return filter, apperrors.NewValidationError(err.Error())
	}
	to, err := helpers.ParseOptionalDate("to", req.To)
	if err != nil {
		return filter, apperrors.NewValidationError(err.Error())
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !from.Before(*to) {
		return filter, apperrors.NewValidationError("from must not be after to")
	}

	filter.From = from
	filter.To = to
	return filter, nil
}
