package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/dberrors"
	"github.com/universys/universyslite/internal/pkg/logger"
)

// NUMERIC columns are read as text and parsed into decimals.
var invoiceColumns = []string{
	"i.id", "i.invoice_number", "i.student_id", "i.term_id", "i.amount::text", "i.amount_paid::text",
	"i.currency", "i.status", "i.due_date", "i.created_at", "i.updated_at", "t.code",
}

// InvoiceRepository handles invoices, their lines and payments
type InvoiceRepository struct {
	base
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{base: newBase(db)}
}

func (r *InvoiceRepository) selectInvoices() squirrel.SelectBuilder {
	return r.sb.Select(invoiceColumns...).
		From("invoices i").
		Join("terms t ON t.id = i.term_id")
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var inv models.Invoice
	var amount, paid string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.StudentID, &inv.TermID, &amount, &paid,
		&inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt, &inv.TermCode,
	)
	if err != nil {
		return nil, err
	}
	if inv.Amount, err = money(amount); err != nil {
		return nil, err
	}
	if inv.AmountPaid, err = money(paid); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invoice together with its lines. Call it inside a transaction.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	sql, args, err := r.sb.Insert("invoices").
		Columns("invoice_number", "student_id", "term_id", "amount", "amount_paid", "currency", "status", "due_date").
		Values(inv.InvoiceNumber, inv.StudentID, inv.TermID, inv.Amount.StringFixed(2), inv.AmountPaid.StringFixed(2),
			inv.Currency, inv.Status, inv.DueDate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create invoice query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "invoices_student_term_key") {
			return apperrors.ErrInvoiceAlreadyExists
		}
		logger.Error().Err(err).Int64("studentID", inv.StudentID).Int64("termID", inv.TermID).Msg("Error creating invoice")
		return fmt.Errorf("error creating invoice: %w", err)
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.InvoiceID = inv.ID
		err := r.q(ctx).QueryRow(ctx,
			`INSERT INTO invoice_lines (invoice_id, description, amount) VALUES ($1, $2, $3) RETURNING id`,
			inv.ID, line.Description, line.Amount.StringFixed(2),
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("error creating invoice line: %w", err)
		}
	}
	return nil
}

func (r *InvoiceRepository) getOne(ctx context.Context, query squirrel.SelectBuilder) (*models.Invoice, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get invoice query: %w", err)
	}
	inv, err := scanInvoice(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("error retrieving invoice: %w", err)
	}
	return inv, nil
}

// GetByID retrieves an invoice header
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*models.Invoice, error) {
	return r.getOne(ctx, r.selectInvoices().Where(squirrel.Eq{"i.id": id}))
}

// GetForUpdate retrieves an invoice header and locks its row
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return r.getOne(ctx, r.selectInvoices().Where(squirrel.Eq{"i.id": id}).Suffix("FOR UPDATE OF i"))
}

// ByStudent lists a student's invoice headers, newest term first
func (r *InvoiceRepository) ByStudent(ctx context.Context, studentID int64) ([]*models.Invoice, error) {
	sql, args, err := r.selectInvoices().
		Where(squirrel.Eq{"i.student_id": studentID}).
		OrderBy("t.start_date DESC", "i.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list invoices query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Lines lists the charge lines of an invoice
func (r *InvoiceRepository) Lines(ctx context.Context, invoiceID int64) ([]models.InvoiceLine, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, invoice_id, description, amount::text FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error listing invoice lines: %w", err)
	}
	defer rows.Close()

	lines := []models.InvoiceLine{}
	for rows.Next() {
		var l models.InvoiceLine
		var amount string
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &amount); err != nil {
			return nil, fmt.Errorf("error scanning invoice line: %w", err)
		}
		if l.Amount, err = money(amount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Payments lists the payments applied to an invoice in order
func (r *InvoiceRepository) Payments(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, invoice_id, amount::text, method, reference, paid_at FROM payments WHERE invoice_id = $1 ORDER BY paid_at, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("error scanning payment: %w", err)
		}
		if p.Amount, err = money(amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// AddPayment records a payment row
func (r *InvoiceRepository) AddPayment(ctx context.Context, p *models.Payment) error {
	sql, args, err := r.sb.Insert("payments").
		Columns("invoice_id", "amount", "method", "reference", "paid_at").
		Values(p.InvoiceID, p.Amount.StringFixed(2), p.Method, p.Reference, p.PaidAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build add payment query: %w", err)
	}
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("error recording payment: %w", err)
	}
	return nil
}

// SaveState writes the paid amount and status of an invoice
func (r *InvoiceRepository) SaveState(ctx context.Context, inv *models.Invoice) error {
	sql, args, err := r.sb.Update("invoices").
		Set("amount_paid", inv.AmountPaid.StringFixed(2)).
		Set("status", inv.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": inv.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build save invoice query: %w", err)
	}
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrInvoiceNotFound
		}
		return fmt.Errorf("error saving invoice: %w", err)
	}
	return nil
}
