package wizard

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/washloop/washloop-api/client"
)

// OnboardingStep identifies one screen of the signup flow.
type OnboardingStep int

const (
	OnboardDetails OnboardingStep = iota
	OnboardCode
	OnboardDone
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
)

type onboardingDraft struct {
	Step      OnboardingStep `json:"step"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone"`
	Email     string         `json:"email"`
	TenantID  string         `json:"tenant_id"`
	Subscribe bool           `json:"subscribe"`
}

const onboardingDraftKey = "onboarding"

// Onboarding drives the signup flow: collect details, open the pending
// account, verify the phone with a one-time code, and hand the resulting
// token to the session. The draft survives interruption up until
// verification succeeds; the password lives only in memory and must be
// re-entered after a restart.
type Onboarding struct {
	api     *client.Client
	session *client.Session
	drafts  DraftStore

	mu       sync.Mutex
	draft    onboardingDraft
	password string
	signedUp bool
	otp      *OTP

	newOTP func(phone, email string) *OTP
}

func NewOnboarding(api *client.Client, session *client.Session, drafts DraftStore) *Onboarding {
	o := &Onboarding{
		api:     api,
		session: session,
		drafts:  drafts,
		newOTP: func(phone, email string) *OTP {
			return NewOTP(api, phone, email)
		},
	}

	var saved onboardingDraft
	if err := drafts.LoadDraft(onboardingDraftKey, &saved); err == nil {
		// Code sessions do not survive a restart; resume at the details
		// step with the fields prefilled.
		if saved.Step == OnboardCode {
			saved.Step = OnboardDetails
		}
		o.draft = saved
	}
	return o
}

// Step returns the current step.
func (o *Onboarding) Step() OnboardingStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft.Step
}

// SetDetails validates and records the signup form.
func (o *Onboarding) SetDetails(firstName, lastName, phone, email, tenantID string, subscribe bool) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	email = strings.ToLower(strings.TrimSpace(email))

	if firstName == "" || lastName == "" {
		return errors.New("first and last name are required")
	}
	if !phonePattern.MatchString(phone) {
		return errors.New("invalid phone number")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return errors.New("invalid email address")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.draft.FirstName = firstName
	o.draft.LastName = lastName
	o.draft.Phone = phone
	o.draft.Email = email
	o.draft.TenantID = tenantID
	o.draft.Subscribe = subscribe
	return o.persist()
}

// SetPassword records the password for the account creation call. It is
// never written to the draft store.
func (o *Onboarding) SetPassword(password string) error {
	if len(password) < 7 {
		return errors.New("password must be at least 7 characters")
	}
	o.mu.Lock()
	o.password = password
	o.mu.Unlock()
	return nil
}

// RequestCode opens the pending account if needed, sends the one-time code,
// and advances to the code step.
func (o *Onboarding) RequestCode(ctx context.Context) error {
	o.mu.Lock()
	if o.draft.Phone == "" {
		o.mu.Unlock()
		return errors.New("details are incomplete")
	}
	if o.otp == nil {
		o.otp = o.newOTP(o.draft.Phone, o.draft.Email)
	}
	otp := o.otp
	o.mu.Unlock()

	if err := o.ensureSignedUp(ctx); err != nil {
		return err
	}

	if err := otp.Send(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Step = OnboardCode
	return o.persist()
}

// Entry exposes the code input for the code step.
func (o *Onboarding) Entry() *CodeEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otp == nil {
		return nil
	}
	return &o.otp.Entry
}

// Resend re-requests the code, subject to the cooldown.
func (o *Onboarding) Resend(ctx context.Context) error {
	o.mu.Lock()
	otp := o.otp
	o.mu.Unlock()

	if otp == nil {
		return errors.New("no code has been requested")
	}
	return otp.Send(ctx)
}

// Confirm submits the code with the signup details. On success the
// session is logged in and the draft is cleared; on failure the draft
// stays so the user can retry or go back.
func (o *Onboarding) Confirm(ctx context.Context) (*client.Profile, error) {
	o.mu.Lock()
	otp := o.otp
	details := &client.ConfirmOTPRequest{
		FirstName: o.draft.FirstName,
		LastName:  o.draft.LastName,
		Phone:     o.draft.Phone,
		Email:     o.draft.Email,
		TenantID:  o.draft.TenantID,
		Subscribe: o.draft.Subscribe,
	}
	o.mu.Unlock()

	if otp == nil {
		return nil, errors.New("no code has been requested")
	}

	resp, err := otp.Confirm(ctx, details)
	if err != nil {
		return nil, err
	}

	profile, err := o.session.LoginWithToken(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.draft = onboardingDraft{Step: OnboardDone}
	o.drafts.ClearDraft(onboardingDraftKey)
	o.mu.Unlock()

	return profile, nil
}

// ensureSignedUp creates the account before the first code goes out. An
// account that already exists for the email is fine; verification attaches
// to it.
func (o *Onboarding) ensureSignedUp(ctx context.Context) error {
	o.mu.Lock()
	email, password, tenantID := o.draft.Email, o.password, o.draft.TenantID
	done := o.signedUp
	o.mu.Unlock()

	if done {
		return nil
	}
	if email == "" {
		// A returning user verifying by phone alone; no account to open.
		return nil
	}
	if password == "" {
		return errors.New("a password is required to create the account")
	}

	_, err := o.api.Signup(ctx, &client.SignupRequest{Email: email, Password: password, TenantID: tenantID})
	if err != nil && !client.IsKind(err, client.ErrConflict) {
		return err
	}

	o.mu.Lock()
	o.signedUp = true
	o.mu.Unlock()
	return nil
}

func (o *Onboarding) persist() error {
	return o.drafts.SaveDraft(onboardingDraftKey, o.draft)
}
