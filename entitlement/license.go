// Package entitlement decides whether a tenant may use a module. Core modules
// are always usable; other modules need an enabled per-tenant record and a
// license that is active or within its grace period.
package entitlement

import (
	"math"
	"time"
)

type LicenseStatus string

const (
	StatusActive      LicenseStatus = "ACTIVE"
	StatusGracePeriod LicenseStatus = "GRACE_PERIOD"
	StatusExpired     LicenseStatus = "EXPIRED"
)

const day = 24 * time.Hour

// License is a tenant's commercial entitlement. Status is the persisted
// state written by the sweeper and by renewals; StatusAt derives the state a
// license should be in at a given time.
type License struct {
	TenantID        string        `json:"tenant_id"`
	Plan            string        `json:"plan"`
	ExpiryDate      time.Time     `json:"expiry_date"`
	UserLimit       int           `json:"user_limit"`
	GracePeriodDays int           `json:"grace_period_days"`
	Status          LicenseStatus `json:"status"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// GraceEnd is the instant the grace period ends.
func (l License) GraceEnd() time.Time {
	return l.ExpiryDate.Add(time.Duration(l.GracePeriodDays) * day)
}

// StatusAt derives the license state at now.
func (l License) StatusAt(now time.Time) LicenseStatus {
	switch {
	case now.Before(l.ExpiryDate):
		return StatusActive
	case now.Before(l.GraceEnd()):
		return StatusGracePeriod
	default:
		return StatusExpired
	}
}

// Usable reports whether non-core modules may be used at now.
func (l License) Usable(now time.Time) bool {
	return l.StatusAt(now) != StatusExpired
}

// DaysUntilExpiry is the number of started days left before expiry, zero once
// expired.
func (l License) DaysUntilExpiry(now time.Time) int {
	return daysCeil(l.ExpiryDate.Sub(now))
}

func (l License) GracePeriodActive(now time.Time) bool {
	return l.StatusAt(now) == StatusGracePeriod
}

// GracePeriodDaysRemaining is zero unless the grace period is active.
func (l License) GracePeriodDaysRemaining(now time.Time) int {
	if !l.GracePeriodActive(now) {
		return 0
	}
	return daysCeil(l.GraceEnd().Sub(now))
}

func daysCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// Module is an optional or core feature set.
type Module struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Core bool   `json:"core"`
}

// TenantModule is the per-tenant enablement record of a module.
type TenantModule struct {
	TenantID   string    `json:"tenant_id"`
	ModuleCode string    `json:"module_code"`
	Enabled    bool      `json:"enabled"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LicenseView is a license with its derived display values at a point in time.
type LicenseView struct {
	License
	EffectiveStatus          LicenseStatus  `json:"effective_status"`
	DaysUntilExpiry          int            `json:"days_until_expiry"`
	GracePeriodActive        bool           `json:"grace_period_active"`
	GracePeriodDaysRemaining int            `json:"grace_period_days_remaining"`
	Modules                  []TenantModule `json:"modules"`
}

func NewLicenseView(l License, modules []TenantModule, now time.Time) LicenseView {
	return LicenseView{
		License:                  l,
		EffectiveStatus:          l.StatusAt(now),
		DaysUntilExpiry:          l.DaysUntilExpiry(now),
		GracePeriodActive:        l.GracePeriodActive(now),
		GracePeriodDaysRemaining: l.GracePeriodDaysRemaining(now),
		Modules:                  modules,
	}
}
