package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID                 int64     `json:"id"`
	Role               string    `json:"role"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Phone              string    `json:"phone"`
	TenantID           string    `json:"tenant_id"`
	Subscribed         bool      `json:"subscribed"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

type LoginRequest struct {
	Email    string
	Password string
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// Profile is the who-am-I payload; the shape the client's session manager
// populates itself from.
type Profile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id,omitempty"`
}

type RequestOTPRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type RequestOTPResponse struct {
	SessionID string `json:"session_id"`
	ExpiresIn int64  `json:"expires_in"`
}

type ConfirmOTPRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	TenantID  string `json:"tenant_id"`
	Subscribe bool   `json:"subscribe,omitempty"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// Valid user roles
const (
	RoleUser       = "user"
	RoleStaff      = "staff"
	RoleAdmin      = "admin"
	RoleDeveloper  = "developer"
	RoleSuperadmin = "superadmin"
)

var validRoles = map[string]bool{
	RoleUser:       true,
	RoleStaff:      true,
	RoleAdmin:      true,
	RoleDeveloper:  true,
	RoleSuperadmin: true,
}

// elevatedRoles may access the staff/admin surfaces.
var elevatedRoles = map[string]bool{
	RoleStaff:      true,
	RoleAdmin:      true,
	RoleDeveloper:  true,
	RoleSuperadmin: true,
}

func IsValidRole(role string) bool { return validRoles[role] }

func IsElevatedRole(role string) bool { return elevatedRoles[role] }

// RoleAtLeast reports whether role carries at least the privileges of min.
func RoleAtLeast(role, min string) bool {
	rank := map[string]int{
		RoleUser:       0,
		RoleStaff:      1,
		RoleAdmin:      2,
		RoleDeveloper:  3,
		RoleSuperadmin: 4,
	}
	r, ok1 := rank[role]
	m, ok2 := rank[min]
	return ok1 && ok2 && r >= m
}

func (r *SignupRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.TenantID = strings.TrimSpace(r.TenantID)
}

func (r *SignupRequest) Validate() error {
	if r.Email == "" {
		return E(KindValidation, "email is required")
	}
	if !isValidEmail(r.Email) {
		return E(KindValidation, "invalid email format")
	}
	if r.Password == "" {
		return E(KindValidation, "password is required")
	}
	if len(r.Password) < 7 {
		return E(KindValidation, "password must be at least 7 characters")
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return E(KindValidation, "email is required")
	}
	if r.Password == "" {
		return E(KindValidation, "password is required")
	}
	return nil
}

func (r *RequestOTPRequest) Normalize() {
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *RequestOTPRequest) Validate() error {
	if r.Phone == "" {
		return E(KindValidation, "phone is required")
	}
	if !isValidPhone(r.Phone) {
		return E(KindValidation, "invalid phone format")
	}
	return nil
}

func (r *ConfirmOTPRequest) Normalize() {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Code = strings.TrimSpace(r.Code)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.TenantID = strings.TrimSpace(r.TenantID)
}

func (r *ConfirmOTPRequest) Validate() error {
	if r.SessionID == "" {
		return E(KindValidation, "session_id is required")
	}
	if len(r.Code) != 6 {
		return E(KindValidation, "code must be 6 digits")
	}
	for _, c := range r.Code {
		if c < '0' || c > '9' {
			return E(KindValidation, "code must be 6 digits")
		}
	}
	if r.Phone == "" {
		return E(KindValidation, "phone is required")
	}
	return nil
}

func (r *UpdateUserRequest) Validate() error {
	if r.Role != nil && !validRoles[*r.Role] {
		return E(KindValidation, "invalid role")
	}
	if r.Phone != nil && !isValidPhone(*r.Phone) {
		return E(KindValidation, "invalid phone format")
	}
	return nil
}

func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func isValidPhone(phone string) bool {
	phoneRegex := regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)
	return phoneRegex.MatchString(phone) && len(phone) >= 7
}

// ToProfile converts User to the public who-am-I shape.
func (u *User) ToProfile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		TenantID:  u.TenantID,
	}
}
