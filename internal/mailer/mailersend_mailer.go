package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendOTPEmail(toEmail, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your WashLoop verification code"
	html := fmt.Sprintf(`
		<h2>Your WashLoop verification code</h2>
		<p>Enter this code to verify your account: <strong style="font-size: 24px;">%s</strong></p>
		<p>The code expires in 10 minutes. If you didn't request it, ignore this email.</p>
	`, code)
	text := fmt.Sprintf("Your WashLoop verification code is: %s\n\nThe code expires in 10 minutes.", code)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) SendReceiptEmail(toEmail, toName string, orderID int64, totalCents int64) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your WashLoop booking is confirmed"
	html := fmt.Sprintf(`
		<h2>Booking confirmed</h2>
		<p>Hi %s,</p>
		<p>Your booking #%d is paid. Total: R%.2f.</p>
		<p>Show the QR code in the app at the wash bay.</p>
	`, toName, orderID, float64(totalCents)/100)
	text := fmt.Sprintf("Booking #%d confirmed. Total: R%.2f.", orderID, float64(totalCents)/100)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendMagicLoginEmail(toEmail, loginURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your WashLoop login link"
	html := fmt.Sprintf(`
		<h2>Log in to WashLoop</h2>
		<p><a href="%s">Click here to log in</a>. The link is single-use and expires in 15 minutes.</p>
	`, loginURL)
	text := fmt.Sprintf("Log in to WashLoop: %s\n\nThe link is single-use and expires in 15 minutes.", loginURL)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
