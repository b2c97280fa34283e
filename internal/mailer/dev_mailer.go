package mailer

import (
	"github.com/washloop/washloop-api/pkg/logger"
)

// DevMailer logs email contents instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendOTPEmail(toEmail, code string) error {
	logger.Info("[DEV MAIL] OTP email",
		"to", toEmail,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendReceiptEmail(toEmail, toName string, orderID int64, totalCents int64) error {
	logger.Info("[DEV MAIL] Receipt email",
		"to", toEmail,
		"name", toName,
		"order_id", orderID,
		"total_cents", totalCents,
	)
	return nil
}

func (d *DevMailer) SendMagicLoginEmail(toEmail, loginURL string) error {
	logger.Info("[DEV MAIL] Magic login email",
		"to", toEmail,
		"login_url", loginURL,
	)
	return nil
}
