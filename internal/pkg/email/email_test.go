package email

import (
	"bytes"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierLogsWithoutCredentials(t *testing.T) {
	var buf bytes.Buffer
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.test", Port: 25}, zerolog.New(&buf))
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without credentials")
		return nil
	}

	err := n.SendWaitlistPromotion(WaitlistPromotion{ToEmail: "ada@student.edu", CourseCode: "CS101", TermCode: "2025FA"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ada@student.edu")
	assert.Contains(t, buf.String(), "CS101")
}

func TestNotifierSendsInvoice(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTPNotifier(SMTPConfig{
		Host: "smtp.test", Port: 587, Username: "u", Password: "p", FromEmail: "bursar@universys.edu",
	}, zerolog.Nop())
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.SendInvoiceIssued(InvoiceIssued{
		ToEmail:       "ada@student.edu",
		ToName:        "Ada",
		InvoiceNumber: "INV-2025FA-0a1b2c3d",
		TermCode:      "2025FA",
		Amount:        decimal.RequireFromString("1165"),
		Currency:      "USD",
		DueDate:       time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, "bursar@universys.edu", gotFrom)
	assert.Equal(t, []string{"ada@student.edu"}, gotTo)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Invoice INV-2025FA-0a1b2c3d issued")
	assert.Contains(t, body, "1165.00 USD")
	assert.Contains(t, body, "October 1, 2025")
}

func TestNotifierPropagatesSendError(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "h", Port: 1, Username: "u", Password: "p"}, zerolog.Nop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	err := n.SendWaitlistPromotion(WaitlistPromotion{ToEmail: "x@y.z"})
	assert.ErrorContains(t, err, "refused")
}
