package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/mailer"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/internal/sms"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/pkg/auth"
	"github.com/washloop/washloop-api/pkg/config"
	"github.com/washloop/washloop-api/pkg/events"
	"github.com/washloop/washloop-api/pkg/logger"
)

type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	WhoAmI(ctx context.Context, userID int64) (*domain.Profile, error)
	RequestOTP(ctx context.Context, req *domain.RequestOTPRequest, clientIP string) (*domain.RequestOTPResponse, error)
	ConfirmOTP(ctx context.Context, req *domain.ConfirmOTPRequest) (*domain.LoginResponse, error)
	SendMagicLoginLink(ctx context.Context, email string) error
	MagicLogin(ctx context.Context, token string) (*domain.LoginResponse, error)

	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, tenantID string, limit, offset int) ([]domain.User, error)
	UpdateUserRole(ctx context.Context, actorRole string, userID int64, role string) error
}

type authService struct {
	userRepo   postgres.UserRepository
	verifyRepo postgres.VerifyRepository
	cooldowns  *redisstore.CooldownStore
	mailer     mailer.Service
	smsSender  sms.Sender
	eventBus   events.EventBus
	config     *config.Config
}

func NewAuthService(
	userRepo postgres.UserRepository,
	verifyRepo postgres.VerifyRepository,
	cooldowns *redisstore.CooldownStore,
	mailer mailer.Service,
	smsSender sms.Sender,
	eventBus events.EventBus,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		verifyRepo: verifyRepo,
		cooldowns:  cooldowns,
		mailer:     mailer,
		smsSender:  smsSender,
		eventBus:   eventBus,
		config:     config,
	}
}

// Signup creates a pending user record. It does not establish a session:
// the caller continues to phone verification, and only ConfirmOTP marks
// onboarding complete and issues a token.
func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.E(domain.KindAlreadyExists, "an account with this email already exists")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req.Email, passwordHash, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.UserSignedUp, events.UserSignedUpEvent{
		UserID:   user.ID,
		Email:    user.Email,
		TenantID: user.TenantID,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish signup event", "error", err, "user_id", user.ID)
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.E(domain.KindNotRegistered, "no account exists for this email")
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.E(domain.KindInvalidCredentials, "invalid credentials")
	}

	if !user.OnboardingComplete {
		return nil, domain.E(domain.KindOnboardingIncomplete, "phone verification has not been completed")
	}

	return s.issueSession(user)
}

func (s *authService) WhoAmI(ctx context.Context, userID int64) (*domain.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	return user.ToProfile(), nil
}

// RequestOTP generates a 6-digit code, stores its hash, and delivers it over
// SMS (plus email when one is on file). Resends are held behind a per-phone
// cooldown and a per-IP rate limit.
func (s *authService) RequestOTP(ctx context.Context, req *domain.RequestOTPRequest, clientIP string) (*domain.RequestOTPResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if clientIP != "" {
		allowed, err := s.cooldowns.Allow(ctx, "otp:"+clientIP, 10, time.Minute)
		if err != nil {
			logger.WarnContext(ctx, "OTP rate limit check failed", "error", err)
		} else if !allowed {
			return nil, domain.E(domain.KindCooldownActive, "too many requests, try again later")
		}
	}

	ok, err := s.cooldowns.StartCooldown(ctx, "otp:resend:"+req.Phone, s.config.Auth.OTPResendCooldown)
	if err != nil {
		logger.WarnContext(ctx, "OTP cooldown check failed", "error", err)
	} else if !ok {
		remaining, _ := s.cooldowns.CooldownRemaining(ctx, "otp:resend:"+req.Phone)
		return nil, domain.Ef(domain.KindCooldownActive, "a code was sent recently, wait %d seconds", int(remaining.Seconds()))
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	sessionID := uuid.NewString()
	expiresAt := time.Now().Add(s.config.Auth.OTPCodeTTL)

	if err := s.verifyRepo.CreateOTP(ctx, sessionID, req.Phone, string(codeHash), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.smsSender.SendOTP(req.Phone, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send OTP SMS", "error", err, "phone", req.Phone)
		// Code was stored; email below may still reach the user
	}
	if req.Email != "" {
		if err := s.mailer.SendOTPEmail(req.Email, code); err != nil {
			logger.WarnContext(ctx, "Failed to send OTP email", "error", err, "email", req.Email)
		}
	}

	return &domain.RequestOTPResponse{
		SessionID: sessionID,
		ExpiresIn: int64(s.config.Auth.OTPCodeTTL.Seconds()),
	}, nil
}

// ConfirmOTP exchanges a verified code for a session. The user record is
// looked up by email (signup flow) or phone (returning user), profile
// fields from the onboarding draft are applied, and onboarding is marked
// complete.
func (s *authService) ConfirmOTP(ctx context.Context, req *domain.ConfirmOTPRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	phone, valid, err := s.verifyRepo.CheckOTP(ctx, req.SessionID, req.Code, s.config.Auth.OTPMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}
	if !valid {
		return nil, domain.E(domain.KindInvalidCode, "invalid or expired verification code")
	}
	if phone != req.Phone {
		return nil, domain.E(domain.KindInvalidCode, "code was issued for a different phone number")
	}

	var user *domain.User
	if req.Email != "" {
		user, err = s.userRepo.FindByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
	}
	if user == nil {
		user, err = s.userRepo.FindByPhone(ctx, req.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
	}
	if user == nil {
		return nil, domain.E(domain.KindNotRegistered, "no pending account for this phone, sign up first")
	}

	user, err = s.userRepo.CompleteOnboarding(ctx, user.ID, req.FirstName, req.LastName, req.Phone, req.Subscribe)
	if err != nil {
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.UserPhoneVerified, events.UserPhoneVerifiedEvent{
		UserID: user.ID,
		Phone:  user.Phone,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish phone verified event", "error", err, "user_id", user.ID)
	}

	return s.issueSession(user)
}

// SendMagicLoginLink emails a single-use auto-login link. The response to
// the caller is identical whether or not the email exists.
func (s *authService) SendMagicLoginLink(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.config.Auth.MagicTokenTTL)

	if err := s.verifyRepo.CreateMagicToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to create magic token: %w", err)
	}

	loginURL := fmt.Sprintf("%s/auth/magic?token=%s", s.config.Server.BaseURL, token)
	if err := s.mailer.SendMagicLoginEmail(user.Email, loginURL); err != nil {
		logger.ErrorContext(ctx, "Failed to send magic login email", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send magic login email: %w", err)
	}

	return nil
}

func (s *authService) MagicLogin(ctx context.Context, token string) (*domain.LoginResponse, error) {
	userID, err := s.verifyRepo.ConsumeMagicToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to consume magic token: %w", err)
	}
	if userID == 0 {
		return nil, domain.E(domain.KindInvalidCode, "invalid or expired login link")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.E(domain.KindNotRegistered, "account no longer exists")
	}

	// The link only proves email ownership; the phone verification gate
	// applies here the same as on a password login.
	if !user.OnboardingComplete {
		return nil, domain.E(domain.KindOnboardingIncomplete, "phone verification has not been completed")
	}

	return s.issueSession(user)
}

// Admin operations

func (s *authService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *authService) UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *authService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *authService) ListUsers(ctx context.Context, tenantID string, limit, offset int) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role. Granting admin or above requires a
// superadmin actor.
func (s *authService) UpdateUserRole(ctx context.Context, actorRole string, userID int64, role string) error {
	if !domain.IsValidRole(role) {
		return domain.Ef(domain.KindValidation, "invalid role: %s", role)
	}
	if domain.RoleAtLeast(role, domain.RoleAdmin) && actorRole != domain.RoleSuperadmin {
		return domain.E(domain.KindForbidden, "only a superadmin can grant admin roles")
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// Helpers

func (s *authService) issueSession(user *domain.User) (*domain.LoginResponse, error) {
	scope := generateScope(user.Role)
	accessToken, err := auth.NewAccessToken(
		user.ID,
		user.Email,
		user.Role,
		scope,
		user.TenantID,
		s.config.Auth.JWTSecret,
		s.config.Auth.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &domain.LoginResponse{AccessToken: accessToken}, nil
}

func generateScope(role string) string {
	switch role {
	case domain.RoleSuperadmin:
		return "admin:read admin:write tenants:write users:write orders:read orders:write loyalty:read loyalty:write"
	case domain.RoleDeveloper:
		return "admin:read admin:write modules:write orders:read loyalty:read"
	case domain.RoleAdmin:
		return "admin:read admin:write orders:read orders:write loyalty:read loyalty:write"
	case domain.RoleStaff:
		return "orders:read orders:write loyalty:read"
	case domain.RoleUser:
		return "orders:read:self orders:write:self loyalty:read:self"
	default:
		return ""
	}
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
