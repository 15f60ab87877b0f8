package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/config"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/email"
)

// BillingService issues tuition invoices and records payments
type BillingService interface {
	GenerateTermInvoice(ctx context.Context, actor models.Actor, req *dto.GenerateInvoiceRequest) (*models.Invoice, error)
	GetInvoice(ctx context.Context, actor models.Actor, invoiceID int64) (*models.Invoice, error)
	RecordPayment(ctx context.Context, actor models.Actor, invoiceID int64, req *dto.RecordPaymentRequest) (*models.Invoice, error)
	VoidInvoice(ctx context.Context, actor models.Actor, invoiceID int64) (*models.Invoice, error)
	StudentAccount(ctx context.Context, actor models.Actor, studentID int64) (*models.StudentAccount, error)
}

type invoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id int64) (*models.Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error)
	ByStudent(ctx context.Context, studentID int64) ([]*models.Invoice, error)
	Lines(ctx context.Context, invoiceID int64) ([]models.InvoiceLine, error)
	Payments(ctx context.Context, invoiceID int64) ([]models.Payment, error)
	AddPayment(ctx context.Context, p *models.Payment) error
	SaveState(ctx context.Context, inv *models.Invoice) error
}

type billableCredits interface {
	BillableCredits(ctx context.Context, studentID, termID int64) (int, error)
}

type billingCounter interface {
	Invoice()
	Payment()
}

// BillingDeps groups the collaborators of the billing service
type BillingDeps struct {
	Invoices    invoiceStore
	Enrollments billableCredits
	Students    studentLookup
	Terms       termGetter
	Notifier    email.Notifier
	Metrics     billingCounter
	Tx          Transactor
	Audit       auditRecorder
	Rates       config.BillingRates
}

type billingServiceImpl struct {
	BillingDeps
	now       Clock
	numberTag func() string
	logger    zerolog.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(deps BillingDeps, logger zerolog.Logger) BillingService {
	return &billingServiceImpl{BillingDeps: deps, now: utcNow, numberTag: invoiceTag, logger: logger}
}

// invoiceTag returns 8 uppercase hex characters of a random UUID
func invoiceTag() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// tuitionLines prices a term. Zero-amount fees are left off.
func tuitionLines(rates config.BillingRates, credits int) []models.InvoiceLine {
	tuition := rates.TuitionPerCredit.Mul(decimal.NewFromInt(int64(credits))).Round(2)
	lines := []models.InvoiceLine{{
		Description: fmt.Sprintf("Tuition: %d credits at %s %s", credits, rates.TuitionPerCredit.StringFixed(2), rates.Currency),
		Amount:      tuition,
	}}
	if rates.RegistrationFee.IsPositive() {
		lines = append(lines, models.InvoiceLine{Description: "Registration fee", Amount: rates.RegistrationFee.Round(2)})
	}
	if rates.TechnologyFee.IsPositive() {
		lines = append(lines, models.InvoiceLine{Description: "Technology fee", Amount: rates.TechnologyFee.Round(2)})
	}
	return lines
}

// GenerateTermInvoice bills a student's enrolled and completed credits for a term
func (s *billingServiceImpl) GenerateTermInvoice(ctx context.Context, actor models.Actor, req *dto.GenerateInvoiceRequest) (*models.Invoice, error) {
	var invoice *models.Invoice
	var student *models.Student
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		student, err = s.Students.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}
		term, err := s.Terms.GetByID(ctx, req.TermID)
		if err != nil {
			return err
		}
		credits, err := s.Enrollments.BillableCredits(ctx, student.ID, term.ID)
		if err != nil {
			return err
		}
		if credits == 0 {
			return apperrors.ErrNothingToBill
		}

		lines := tuitionLines(s.Rates, credits)
		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(l.Amount)
		}

		invoice = &models.Invoice{
			InvoiceNumber: fmt.Sprintf("INV-%s-%s", term.Code, s.numberTag()),
			StudentID:     student.ID,
			TermID:        term.ID,
			Amount:        total,
			AmountPaid:    decimal.Zero,
			Currency:      s.Rates.Currency,
			Status:        models.InvoiceStatusOpen,
			DueDate:       term.StartDate.AddDate(0, 0, s.Rates.PaymentDueDays),
			Lines:         lines,
			Payments:      []models.Payment{},
			TermCode:      term.Code,
		}
		if err := s.Invoices.Create(ctx, invoice); err != nil {
			return err
		}
		return s.Audit.Record(ctx, actor, models.AuditActionInvoice, models.EntityInvoice, invoice.ID, map[string]interface{}{
			"invoiceNumber": invoice.InvoiceNumber,
			"studentId":     student.ID,
			"termId":        term.ID,
			"credits":       credits,
			"amount":        total.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Invoice()
	s.logger.Info().
		Str("invoiceNumber", invoice.InvoiceNumber).
		Str("amount", invoice.Amount.StringFixed(2)).
		Msg("Tuition invoice generated")

	if err := s.Notifier.SendInvoiceIssued(email.InvoiceIssued{
		ToEmail:       student.Email,
		ToName:        student.FullName(),
		InvoiceNumber: invoice.InvoiceNumber,
		TermCode:      invoice.TermCode,
		Amount:        invoice.Amount,
		Currency:      invoice.Currency,
		DueDate:       invoice.DueDate,
	}); err != nil {
		s.logger.Warn().Err(err).Str("invoiceNumber", invoice.InvoiceNumber).Msg("Failed to send invoice email")
	}
	return invoice, nil
}

// loadDetails attaches lines and payments to an invoice
func (s *billingServiceImpl) loadDetails(ctx context.Context, inv *models.Invoice) error {
	lines, err := s.Invoices.Lines(ctx, inv.ID)
	if err != nil {
		return err
	}
	payments, err := s.Invoices.Payments(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.Lines = lines
	inv.Payments = payments
	return nil
}

// GetInvoice returns one invoice with its lines and payments
func (s *billingServiceImpl) GetInvoice(ctx context.Context, actor models.Actor, invoiceID int64) (*models.Invoice, error) {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(ctx, s.Students, actor, inv.StudentID); err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RecordPayment applies money to an open invoice, closing it at zero balance
func (s *billingServiceImpl) RecordPayment(ctx context.Context, actor models.Actor, invoiceID int64, req *dto.RecordPaymentRequest) (*models.Invoice, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, apperrors.NewValidationError("amount must be a decimal number")
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount must be greater than zero")
	}
	if amount.Exponent() < -2 {
		return nil, apperrors.NewValidationError("amount cannot have more than 2 decimal places")
	}
	method, err := models.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var invoice *models.Invoice
	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != models.InvoiceStatusOpen {
			return apperrors.ErrInvoiceNotOpen
		}
		balance := invoice.Balance()
		if amount.GreaterThan(balance) {
			return apperrors.NewCustomError(apperrors.ErrOverpayment, "payment exceeds the outstanding balance").
				WithDetails(map[string]interface{}{"balance": balance.StringFixed(2), "amount": amount.StringFixed(2)})
		}

		payment := &models.Payment{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    method,
			Reference: strings.TrimSpace(req.Reference),
			PaidAt:    s.now(),
		}
		if err := s.Invoices.AddPayment(ctx, payment); err != nil {
			return err
		}
		invoice.AmountPaid = invoice.AmountPaid.Add(amount)
		if invoice.Balance().IsZero() {
			invoice.Status = models.InvoiceStatusPaid
		}
		if err := s.Invoices.SaveState(ctx, invoice); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, actor, models.AuditActionPayment, models.EntityInvoice, invoice.ID, map[string]interface{}{
			"paymentId": payment.ID,
			"amount":    amount.StringFixed(2),
			"method":    method,
			"status":    invoice.Status,
		}); err != nil {
			return err
		}
		return s.loadDetails(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Payment()
	s.logger.Info().
		Int64("invoiceID", invoiceID).
		Str("amount", amount.StringFixed(2)).
		Str("status", string(invoice.Status)).
		Msg("Payment recorded")
	return invoice, nil
}

// VoidInvoice cancels an open invoice that has received no money
func (s *billingServiceImpl) VoidInvoice(ctx context.Context, actor models.Actor, invoiceID int64) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != models.InvoiceStatusOpen {
			return apperrors.ErrInvoiceNotOpen
		}
		if !invoice.AmountPaid.IsZero() {
			return apperrors.ErrInvoiceHasPayments
		}
		payments, err := s.Invoices.Payments(ctx, invoice.ID)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return apperrors.ErrInvoiceHasPayments
		}
		invoice.Status = models.InvoiceStatusVoid
		if err := s.Invoices.SaveState(ctx, invoice); err != nil {
			return err
		}
		return s.Audit.Record(ctx, actor, models.AuditActionVoid, models.EntityInvoice, invoice.ID,
			map[string]interface{}{"invoiceNumber": invoice.InvoiceNumber})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// StudentAccount lists a student's invoices and the total still owed
func (s *billingServiceImpl) StudentAccount(ctx context.Context, actor models.Actor, studentID int64) (*models.StudentAccount, error) {
	if err := authorizeStudent(ctx, s.Students, actor, studentID); err != nil {
		return nil, err
	}
	if _, err := s.Students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	invoices, err := s.Invoices.ByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	outstanding := decimal.Zero
	for _, inv := range invoices {
		if err := s.loadDetails(ctx, inv); err != nil {
			return nil, err
		}
		if inv.Status == models.InvoiceStatusOpen {
			outstanding = outstanding.Add(inv.Balance())
		}
	}
	return &models.StudentAccount{
		StudentID:          studentID,
		Invoices:           invoices,
		OutstandingBalance: outstanding.Round(2),
		Currency:           s.Rates.Currency,
	}, nil
}
