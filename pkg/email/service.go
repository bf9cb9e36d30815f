package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.resend.com"

// ErrNotConfigured is returned when no API key or sender is set.
var ErrNotConfigured = errors.New("email service not configured")

// EmailService handles sending emails via Resend API
type EmailService struct {
	apiKey    string
	fromEmail string
	baseURL   string
	client    *http.Client
}

// NewEmailService creates a new email service instance
func NewEmailService(apiKey, fromEmail string) *EmailService {
	return &EmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the service at another Resend-compatible endpoint.
func (s *EmailService) WithBaseURL(u string) *EmailService {
	s.baseURL = u
	return s
}

// IsConfigured checks if the email service is properly configured
func (s *EmailService) IsConfigured() bool {
	return s.apiKey != "" && s.fromEmail != ""
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendEmail sends an email using Resend API
func (s *EmailService) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	payload := sendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}

// InvoiceMail describes an invoice link sent to a customer.
type InvoiceMail struct {
	To            string
	CustomerName  string
	CompanyName   string
	InvoiceNumber string
	TotalAmount   string
	PDFURL        string
}

// SendInvoice mails the customer a link to their invoice PDF
func (s *EmailService) SendInvoice(ctx context.Context, m InvoiceMail) error {
	company := m.CompanyName
	if company == "" {
		company = "us"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
    <div style="max-width: 600px; margin: 0 auto; padding: 40px 20px;">
        <div style="background: #1f2937; border-radius: 16px 16px 0 0; padding: 32px; text-align: center;">
            <h1 style="color: white; margin: 0; font-size: 24px;">Invoice %s</h1>
        </div>
        <div style="background: white; padding: 32px; border-radius: 0 0 16px 16px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
            <p style="color: #374151; font-size: 16px; margin-bottom: 24px;">
                Hi <strong>%s</strong>,
            </p>
            <p style="color: #374151; font-size: 16px; margin-bottom: 24px;">
                Thank you for shopping with <strong>%s</strong>. Your invoice total is <strong>&#8377;%s</strong>.
            </p>
            <div style="text-align: center; margin: 32px 0;">
                <a href="%s" style="display: inline-block; background: #2563eb; color: white; text-decoration: none; padding: 16px 32px; border-radius: 12px; font-weight: bold; font-size: 16px;">
                    Download Invoice
                </a>
            </div>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(m.InvoiceNumber), html.EscapeString(m.CustomerName), html.EscapeString(company),
		html.EscapeString(m.TotalAmount), html.EscapeString(m.PDFURL))

	subject := fmt.Sprintf("Invoice %s from %s", m.InvoiceNumber, company)
	return s.SendEmail(ctx, m.To, subject, htmlBody)
}

// DueBill is one line of a bill reminder.
type DueBill struct {
	PartyName     string
	InvoiceNumber string
	Amount        string
	DueDate       string
	DaysLeft      int
}

// BillReminderMail lists unpaid bills falling due soon.
type BillReminderMail struct {
	To    string
	Name  string
	Bills []DueBill
}

// SendBillReminder mails an account owner the bills due in the next days
func (s *EmailService) SendBillReminder(ctx context.Context, m BillReminderMail) error {
	var rows strings.Builder
	for _, b := range m.Bills {
		when := fmt.Sprintf("in %d days", b.DaysLeft)
		switch b.DaysLeft {
		case 0:
			when = "today"
		case 1:
			when = "tomorrow"
		}
		fmt.Fprintf(&rows, `
            <tr>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb; text-align: right;">&#8377;%s</td>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s (%s)</td>
            </tr>`,
			html.EscapeString(b.PartyName), html.EscapeString(b.InvoiceNumber),
			html.EscapeString(b.Amount), html.EscapeString(b.DueDate), when)
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
</head>
<body style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
    <div style="max-width: 600px; margin: 0 auto; padding: 40px 20px;">
        <div style="background: white; padding: 32px; border-radius: 16px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
            <p style="color: #374151; font-size: 16px;">Hi <strong>%s</strong>,</p>
            <p style="color: #374151; font-size: 16px;">These unpaid bills are due soon:</p>
            <table style="width: 100%%; border-collapse: collapse; font-size: 14px; color: #374151;">%s
            </table>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(m.Name), rows.String())

	subject := fmt.Sprintf("%d unpaid bills due soon", len(m.Bills))
	if len(m.Bills) == 1 {
		subject = "1 unpaid bill due soon"
	}
	return s.SendEmail(ctx, m.To, subject, htmlBody)
}
