// Package sms abstracts the SMS provider used for phone OTP delivery.
package sms

import (
	"github.com/washloop/washloop-api/pkg/logger"
)

type Sender interface {
	SendOTP(phone, code string) error
}

// DevSender logs codes instead of sending them.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) SendOTP(phone, code string) error {
	logger.Info("[DEV SMS] OTP code",
		"to", phone,
		"code", code,
	)
	return nil
}
