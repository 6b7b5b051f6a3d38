package users

import (
	"fmt"
	"slices"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Tenant level roles. Roles are opaque strings to the verifiers; these are
// the ones the bundled service routes check for.
const (
	RoleAdmin  = "ADMIN"
	RoleAgent  = "AGENT"
	RoleViewer = "VIEWER"
)

// TenantMembership holds a user's roles and permissions within one tenant.
type TenantMembership struct {
	TenantID    string    `json:"tenant_id"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	JoinedAt    time.Time `json:"joined_at"`
}

type User struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`

	Tenants []TenantMembership `json:"tenants,omitempty"`

	Verified bool `json:"verified,omitempty"`
	Blocked  bool `json:"blocked,omitempty"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword compares password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) HasTenant(tenantID string) bool {
	return u.GetTenantMembership(tenantID) != nil
}

// GetTenantMembership returns the user's membership for a specific tenant
func (u *User) GetTenantMembership(tenantID string) *TenantMembership {
	if tenantID == "" {
		return nil
	}
	for i := range u.Tenants {
		if u.Tenants[i].TenantID == tenantID {
			return &u.Tenants[i]
		}
	}
	return nil
}

// GetRolesForTenant returns a copy of the user's roles within a tenant
func (u *User) GetRolesForTenant(tenantID string) []string {
	if m := u.GetTenantMembership(tenantID); m != nil {
		return slices.Clone(m.Roles)
	}
	return nil
}

// GetPermissionsForTenant returns a copy of the user's permissions within a tenant
func (u *User) GetPermissionsForTenant(tenantID string) []string {
	if m := u.GetTenantMembership(tenantID); m != nil {
		return slices.Clone(m.Permissions)
	}
	return nil
}

// HasTenantRole checks if the user has a specific role within a tenant
func (u *User) HasTenantRole(tenantID, role string) bool {
	return slices.Contains(u.GetRolesForTenant(tenantID), role)
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Tenants = make([]TenantMembership, len(u.Tenants))
	for i, m := range u.Tenants {
		m.Roles = slices.Clone(m.Roles)
		m.Permissions = slices.Clone(m.Permissions)
		c.Tenants[i] = m
	}
	return &c
}
