package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notifier sends registrar notifications to students
type Notifier interface {
	SendWaitlistPromotion(msg WaitlistPromotion) error
	SendInvoiceIssued(msg InvoiceIssued) error
}

// WaitlistPromotion tells a student they moved from the waitlist into a seat.
type WaitlistPromotion struct {
	ToEmail       string
	ToName        string
	CourseCode    string
	CourseTitle   string
	SectionNumber string
	TermCode      string
}

// InvoiceIssued tells a student a term invoice is ready.
type InvoiceIssued struct {
	ToEmail       string
	ToName        string
	InvoiceNumber string
	TermCode      string
	Amount        decimal.Decimal
	Currency      string
	DueDate       time.Time
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

// SMTPNotifier implements Notifier over net/smtp
type SMTPNotifier struct {
	config SMTPConfig
	logger zerolog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a notifier. Without credentials it only logs.
func NewSMTPNotifier(config SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		config: config,
		logger: logger.With().Str("component", "email").Logger(),
		send:   smtp.SendMail,
	}
}

var (
	promotionTemplate = template.Must(template.New("promotion").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<p>Hello {{.ToName}},</p>
<p>A seat opened in <strong>{{.CourseCode}} {{.CourseTitle}}</strong>, section {{.SectionNumber}} ({{.TermCode}}).
You have been moved from the waitlist and are now enrolled.</p>
<p>If you no longer want the seat, drop the section before the drop deadline.</p>
<p>Office of the Registrar</p>
</body>
</html>`))

	invoiceTemplate = template.Must(template.New("invoice").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<p>Hello {{.ToName}},</p>
<p>Invoice <strong>{{.InvoiceNumber}}</strong> for term {{.TermCode}} has been issued.</p>
<p>Amount due: <strong>{{.Amount}} {{.Currency}}</strong> by {{.Due}}.</p>
<p>Student Accounts Office</p>
</body>
</html>`))
)

// SendWaitlistPromotion notifies a student promoted from the waitlist
func (s *SMTPNotifier) SendWaitlistPromotion(msg WaitlistPromotion) error {
	subject := fmt.Sprintf("You are enrolled in %s (%s)", msg.CourseCode, msg.TermCode)
	return s.render(msg.ToEmail, subject, promotionTemplate, msg)
}

// SendInvoiceIssued notifies a student that an invoice was generated
func (s *SMTPNotifier) SendInvoiceIssued(msg InvoiceIssued) error {
	data := struct {
		InvoiceIssued
		Amount string
		Due    string
	}{
		InvoiceIssued: msg,
		Amount:        msg.Amount.StringFixed(2),
		Due:           msg.DueDate.Format("January 2, 2006"),
	}
	subject := fmt.Sprintf("Invoice %s issued", msg.InvoiceNumber)
	return s.render(msg.ToEmail, subject, invoiceTemplate, data)
}

func (s *SMTPNotifier) render(to, subject string, tmpl *template.Template, data interface{}) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}

	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", to).
			Str("subject", subject).
			Msg("SMTP credentials not configured - email not sent")
		return nil
	}

	return s.sendHTMLEmail(to, subject, body.String())
}

// sendHTMLEmail sends an HTML email
func (s *SMTPNotifier) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.config.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(htmlBody)

	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	if err := s.send(serverAddress, auth, s.config.FromEmail, []string{toEmail}, []byte(msg.String())); err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
