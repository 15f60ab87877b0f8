package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN"
	InvoiceStatusPaid InvoiceStatus = "PAID"
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
)

// ParsePaymentMethod parses a payment method case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCash:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Invoice is a bill issued to a student for a term.
type Invoice struct {
	ID            int64           `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoiceNumber" db:"invoice_number"`
	StudentID     int64           `json:"studentId" db:"student_id"`
	TermID        int64           `json:"termId" db:"term_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	AmountPaid    decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	Currency      string          `json:"currency" db:"currency"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	DueDate       time.Time       `json:"dueDate" db:"due_date"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`

	Lines    []InvoiceLine `json:"lines,omitempty"`
	Payments []Payment     `json:"payments,omitempty"`
	TermCode string        `json:"termCode,omitempty"`
}

// Balance returns the outstanding amount.
func (i *Invoice) Balance() decimal.Decimal {
	if i.Status == InvoiceStatusVoid {
		return decimal.Zero
	}
	return i.Amount.Sub(i.AmountPaid)
}

// InvoiceLine is a single charge on an invoice.
type InvoiceLine struct {
	ID          int64           `json:"id" db:"id"`
	InvoiceID   int64           `json:"invoiceId" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
}

// Payment is money received against an invoice.
type Payment struct {
	ID        int64           `json:"id" db:"id"`
	InvoiceID int64           `json:"invoiceId" db:"invoice_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Method    PaymentMethod   `json:"method" db:"method"`
	Reference string          `json:"reference,omitempty" db:"reference"`
	PaidAt    time.Time       `json:"paidAt" db:"paid_at"`
}

// StudentAccount aggregates a student's invoices.
type StudentAccount struct {
	StudentID          int64           `json:"studentId"`
	Invoices           []*Invoice      `json:"invoices"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	Currency           string          `json:"currency"`
}

func fixed2(d decimal.Decimal) string { return d.StringFixed(2) }

// MarshalJSON renders money with two decimals and adds the balance.
func (i Invoice) MarshalJSON() ([]byte, error) {
	type alias Invoice
	return json.Marshal(struct {
		alias
		Amount     string `json:"amount"`
		AmountPaid string `json:"amountPaid"`
		Balance    string `json:"balance"`
	}{alias(i), fixed2(i.Amount), fixed2(i.AmountPaid), fixed2(i.Balance())})
}

// MarshalJSON renders the line amount with two decimals.
func (l InvoiceLine) MarshalJSON() ([]byte, error) {
	type alias InvoiceLine
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias(l), fixed2(l.Amount)})
}

// MarshalJSON renders the payment amount with two decimals.
func (p Payment) MarshalJSON() ([]byte, error) {
	type alias Payment
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias(p), fixed2(p.Amount)})
}

// MarshalJSON renders the outstanding balance with two decimals.
func (a StudentAccount) MarshalJSON() ([]byte, error) {
	type alias StudentAccount
	return json.Marshal(struct {
		alias
		OutstandingBalance string `json:"outstandingBalance"`
	}{alias(a), fixed2(a.OutstandingBalance)})
}
