package mailer

// Service sends transactional email.
type Service interface {
	SendOTPEmail(toEmail, code string) error
	SendReceiptEmail(toEmail, toName string, orderID int64, totalCents int64) error
	SendMagicLoginEmail(toEmail, loginURL string) error
}
