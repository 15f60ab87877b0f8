package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
)

// BillingController handles tuition invoices and payments
type BillingController struct {
	billingService services.BillingService
	logger         zerolog.Logger
}

// NewBillingController creates a new BillingController
func NewBillingController(billingService services.BillingService, logger zerolog.Logger) *BillingController {
	return &BillingController{billingService: billingService, logger: logger}
}

// GenerateInvoice bills a student's enrolled credits for a term
// @Summary Generate a term invoice
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GenerateInvoiceRequest true "Student and term"
// @Success 201 {object} dto.APIResponse{data=models.Invoice}
// @Failure 409 {object} dto.APIResponse "Invoice already exists"
// @Failure 422 {object} dto.APIResponse "Nothing to bill"
// @Router /invoices [post]
func (c *BillingController) GenerateInvoice(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.GenerateInvoiceRequest
	if !bindJSON(ctx, &req) {
		return
	}

	invoice, err := c.billingService.GenerateTermInvoice(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("invoice", invoice.InvoiceNumber).Int64("studentId", invoice.StudentID).Msg("Invoice generated")
	respondCreated(ctx, invoice)
}

// GetInvoice returns an invoice with its lines and payments
// @Summary Get an invoice
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invoice ID"
// @Success 200 {object} dto.APIResponse{data=models.Invoice}
// @Router /invoices/{id} [get]
func (c *BillingController) GetInvoice(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	invoice, err := c.billingService.GetInvoice(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, invoice)
}

// RecordPayment applies money received to an open invoice
// @Summary Record a payment
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invoice ID"
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 200 {object} dto.APIResponse{data=models.Invoice}
// @Failure 422 {object} dto.APIResponse "Payment exceeds balance"
// @Router /invoices/{id}/payments [post]
func (c *BillingController) RecordPayment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	invoice, err := c.billingService.RecordPayment(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, invoice)
}

// VoidInvoice cancels an open invoice without payments
// @Summary Void an invoice
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invoice ID"
// @Success 200 {object} dto.APIResponse{data=models.Invoice}
// @Router /invoices/{id}/void [post]
func (c *BillingController) VoidInvoice(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	invoice, err := c.billingService.VoidInvoice(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, invoice)
}

// StudentAccount summarizes a student's invoices and outstanding balance
// @Summary Student account
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.StudentAccount}
// @Router /students/{id}/account [get]
func (c *BillingController) StudentAccount(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	account, err := c.billingService.StudentAccount(ctx.Request.Context(), actor, studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, account)
}
