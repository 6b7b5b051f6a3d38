package postgres

import (
	"time"

	"github.com/jrsteele09/go-tenant-guard/entitlement"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	"github.com/jrsteele09/go-tenant-guard/users"
)

type tenantModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	Domain    string    `gorm:"column:domain"`
	Active    bool      `gorm:"column:active"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tenantModel) TableName() string {
	return "tenants"
}

func tenantModelFromEntity(t *tenants.Tenant) tenantModel {
	return tenantModel{
		ID:        t.ID,
		Name:      t.Name,
		Domain:    t.Domain,
		Active:    t.Active,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func (m tenantModel) toEntity() *tenants.Tenant {
	return &tenants.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Domain:    m.Domain,
		Active:    m.Active,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type userModel struct {
	ID           string                   `gorm:"column:id;primaryKey"`
	Email        string                   `gorm:"column:email;uniqueIndex"`
	PasswordHash string                   `gorm:"column:password_hash"`
	FirstName    string                   `gorm:"column:first_name"`
	LastName     string                   `gorm:"column:last_name"`
	DateJoined   time.Time                `gorm:"column:date_joined"`
	LastLogin    *time.Time               `gorm:"column:last_login"`
	Tenants      []users.TenantMembership `gorm:"column:tenants;type:jsonb;serializer:json"`
	Verified     bool                     `gorm:"column:verified"`
	Blocked      bool                     `gorm:"column:blocked"`
}

func (userModel) TableName() string {
	return "users"
}

func userModelFromEntity(u *users.User) userModel {
	row := userModel{
		ID:           u.ID,
		Email:        normaliseEmail(u.Email),
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		DateJoined:   u.DateJoined.UTC(),
		Tenants:      u.Tenants,
		Verified:     u.Verified,
		Blocked:      u.Blocked,
	}
	if !u.LastLogin.IsZero() {
		at := u.LastLogin.UTC()
		row.LastLogin = &at
	}
	return row
}

func (m userModel) toEntity() *users.User {
	u := &users.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		DateJoined:   m.DateJoined.UTC(),
		Tenants:      m.Tenants,
		Verified:     m.Verified,
		Blocked:      m.Blocked,
	}
	if m.LastLogin != nil {
		u.LastLogin = m.LastLogin.UTC()
	}
	return u
}

type licenseModel struct {
	TenantID        string    `gorm:"column:tenant_id;primaryKey"`
	Plan            string    `gorm:"column:plan"`
	ExpiryDate      time.Time `gorm:"column:expiry_date"`
	UserLimit       int       `gorm:"column:user_limit"`
	GracePeriodDays int       `gorm:"column:grace_period_days"`
	Status          string    `gorm:"column:status;index"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (licenseModel) TableName() string {
	return "tenant_licenses"
}

func licenseModelFromEntity(l *entitlement.License) licenseModel {
	return licenseModel{
		TenantID:        l.TenantID,
		Plan:            l.Plan,
		ExpiryDate:      l.ExpiryDate.UTC(),
		UserLimit:       l.UserLimit,
		GracePeriodDays: l.GracePeriodDays,
		Status:          string(l.Status),
		UpdatedAt:       l.UpdatedAt.UTC(),
	}
}

func (m licenseModel) toEntity() *entitlement.License {
	return &entitlement.License{
		TenantID:        m.TenantID,
		Plan:            m.Plan,
		ExpiryDate:      m.ExpiryDate.UTC(),
		UserLimit:       m.UserLimit,
		GracePeriodDays: m.GracePeriodDays,
		Status:          entitlement.LicenseStatus(m.Status),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type moduleModel struct {
	Code string `gorm:"column:code;primaryKey"`
	Name string `gorm:"column:name"`
	Core bool   `gorm:"column:core"`
}

func (moduleModel) TableName() string {
	return "modules"
}

func (m moduleModel) toEntity() *entitlement.Module {
	return &entitlement.Module{Code: m.Code, Name: m.Name, Core: m.Core}
}

type tenantModuleModel struct {
	TenantID   string    `gorm:"column:tenant_id;primaryKey"`
	ModuleCode string    `gorm:"column:module_code;primaryKey"`
	Enabled    bool      `gorm:"column:enabled"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (tenantModuleModel) TableName() string {
	return "tenant_modules"
}

func (m tenantModuleModel) toEntity() *entitlement.TenantModule {
	return &entitlement.TenantModule{
		TenantID:   m.TenantID,
		ModuleCode: m.ModuleCode,
		Enabled:    m.Enabled,
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}
