package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/washloop/washloop-api/client"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// CodeEntry models the six-slot code input. The cursor sits on the next
// empty slot: typing a digit fills it and advances, backspace clears the
// previous slot and retreats.
type CodeEntry struct {
	mu     sync.Mutex
	slots  [CodeLength]byte
	cursor int
}

// Type appends a digit. Non-digits are rejected; typing into a full entry
// is a no-op.
func (c *CodeEntry) Type(r rune) error {
	if r < '0' || r > '9' {
		return errors.New("only digits are allowed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor >= CodeLength {
		return nil
	}
	c.slots[c.cursor] = byte(r)
	c.cursor++
	return nil
}

// Backspace clears the most recently typed digit.
func (c *CodeEntry) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor == 0 {
		return
	}
	c.cursor--
	c.slots[c.cursor] = 0
}

// Paste fills the entry from a pasted string, keeping only digits.
func (c *CodeEntry) Paste(s string) {
	c.mu.Lock()
	c.slots = [CodeLength]byte{}
	c.cursor = 0
	c.mu.Unlock()

	for _, r := range s {
		if r >= '0' && r <= '9' {
			c.Type(r)
		}
	}
}

// Clear empties the entry.
func (c *CodeEntry) Clear() {
	c.mu.Lock()
	c.slots = [CodeLength]byte{}
	c.cursor = 0
	c.mu.Unlock()
}

// Cursor returns the index of the next empty slot.
func (c *CodeEntry) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Complete reports whether all slots are filled.
func (c *CodeEntry) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor == CodeLength
}

// Code returns the typed digits.
func (c *CodeEntry) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	for i := 0; i < c.cursor; i++ {
		sb.WriteByte(c.slots[i])
	}
	return sb.String()
}

const (
	confirmMaxAttempts = 3
	confirmBackoffStep = 500 * time.Millisecond
	resendCooldown     = 60 * time.Second
)

// OTP drives the verify-by-code step: requesting a code, enforcing the
// resend cooldown, and confirming with a bounded retry on transport
// failures only. A definitive server answer, right code or wrong, is
// never retried.
type OTP struct {
	api   *client.Client
	Entry CodeEntry

	mu        sync.Mutex
	phone     string
	email     string
	sessionID string
	lastSent  time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

type OTPOption func(*OTP)

// WithClock overrides the time source and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) OTPOption {
	return func(o *OTP) {
		o.now = now
		o.sleep = sleep
	}
}

func NewOTP(api *client.Client, phone, email string, opts ...OTPOption) *OTP {
	o := &OTP{
		api:   api,
		phone: phone,
		email: email,
		now:   time.Now,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Send requests a code, or resends one. Within the cooldown window it
// refuses locally without a network call.
func (o *OTP) Send(ctx context.Context) error {
	o.mu.Lock()
	if remaining := o.cooldownLocked(); remaining > 0 {
		o.mu.Unlock()
		return fmt.Errorf("wait %ds before requesting another code", int(remaining.Seconds()))
	}
	phone, email := o.phone, o.email
	o.mu.Unlock()

	resp, err := o.api.RequestOTP(ctx, phone, email)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.sessionID = resp.SessionID
	o.lastSent = o.now()
	o.mu.Unlock()

	o.Entry.Clear()
	return nil
}

// CooldownRemaining returns how long until another code may be requested.
func (o *OTP) CooldownRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cooldownLocked()
}

func (o *OTP) cooldownLocked() time.Duration {
	if o.lastSent.IsZero() {
		return 0
	}
	remaining := resendCooldown - o.now().Sub(o.lastSent)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Confirm submits the typed code together with any signup details. Only
// transport failures are retried, with a linear backoff, up to three
// attempts in total.
func (o *OTP) Confirm(ctx context.Context, details *client.ConfirmOTPRequest) (*client.LoginResponse, error) {
	if !o.Entry.Complete() {
		return nil, errors.New("code is incomplete")
	}

	o.mu.Lock()
	sessionID := o.sessionID
	phone := o.phone
	o.mu.Unlock()

	if sessionID == "" {
		return nil, errors.New("no code has been requested")
	}

	req := &client.ConfirmOTPRequest{}
	if details != nil {
		*req = *details
	}
	req.SessionID = sessionID
	req.Code = o.Entry.Code()
	if req.Phone == "" {
		req.Phone = phone
	}

	var lastErr error
	for attempt := 1; attempt <= confirmMaxAttempts; attempt++ {
		resp, err := o.api.ConfirmOTP(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !client.Retryable(err) {
			break
		}
		if attempt == confirmMaxAttempts {
			break
		}
		if err := o.sleep(ctx, time.Duration(attempt)*confirmBackoffStep); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
