package entitlementrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-guard/entitlement"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

var _ entitlement.Repo = (*FakeEntitlementRepo)(nil)

type tenantModuleKey struct {
	tenantID string
	code     string
}

type FakeEntitlementRepo struct {
	licenses      map[string]entitlement.License
	modules       map[string]entitlement.Module
	tenantModules map[tenantModuleKey]entitlement.TenantModule
	lock          sync.RWMutex
}

func NewFakeEntitlementRepo() *FakeEntitlementRepo {
	return &FakeEntitlementRepo{
		licenses:      make(map[string]entitlement.License),
		modules:       make(map[string]entitlement.Module),
		tenantModules: make(map[tenantModuleKey]entitlement.TenantModule),
	}
}

func (r *FakeEntitlementRepo) GetLicense(ctx context.Context, tenantID string) (*entitlement.License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	l, ok := r.licenses[tenantID]
	if !ok {
		return nil, apperrors.ErrLicenseNotFound
	}
	return &l, nil
}

func (r *FakeEntitlementRepo) UpsertLicense(_ context.Context, license *entitlement.License) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.licenses[license.TenantID] = *license
	return nil
}

func (r *FakeEntitlementRepo) ListLicenses(_ context.Context) ([]*entitlement.License, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*entitlement.License, 0, len(r.licenses))
	for _, l := range r.licenses {
		l := l
		list = append(list, &l)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TenantID < list[j].TenantID })
	return list, nil
}

func (r *FakeEntitlementRepo) UpdateLicenseStatus(_ context.Context, tenantID string, status entitlement.LicenseStatus, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	l, ok := r.licenses[tenantID]
	if !ok {
		return apperrors.ErrLicenseNotFound
	}
	l.Status = status
	l.UpdatedAt = at
	r.licenses[tenantID] = l
	return nil
}

func (r *FakeEntitlementRepo) GetModule(ctx context.Context, code string) (*entitlement.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	m, ok := r.modules[code]
	if !ok {
		return nil, apperrors.ErrModuleNotFound
	}
	return &m, nil
}

func (r *FakeEntitlementRepo) UpsertModule(_ context.Context, module *entitlement.Module) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.modules[module.Code] = *module
	return nil
}

func (r *FakeEntitlementRepo) ListModules(_ context.Context) ([]*entitlement.Module, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*entitlement.Module, 0, len(r.modules))
	for _, m := range r.modules {
		m := m
		list = append(list, &m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (r *FakeEntitlementRepo) GetTenantModule(ctx context.Context, tenantID, code string) (*entitlement.TenantModule, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	tm, ok := r.tenantModules[tenantModuleKey{tenantID, code}]
	if !ok {
		return nil, false, nil
	}
	return &tm, true, nil
}

func (r *FakeEntitlementRepo) SetTenantModule(_ context.Context, tenantID, code string, enabled bool, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tenantModules[tenantModuleKey{tenantID, code}] = entitlement.TenantModule{
		TenantID:   tenantID,
		ModuleCode: code,
		Enabled:    enabled,
		UpdatedAt:  at,
	}
	return nil
}

func (r *FakeEntitlementRepo) ListTenantModules(_ context.Context, tenantID string) ([]*entitlement.TenantModule, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*entitlement.TenantModule, 0)
	for k, tm := range r.tenantModules {
		if k.tenantID != tenantID {
			continue
		}
		tm := tm
		list = append(list, &tm)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ModuleCode < list[j].ModuleCode })
	return list, nil
}

func (r *FakeEntitlementRepo) ExpireLicense(_ context.Context, tenantID string, at time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	l, ok := r.licenses[tenantID]
	if !ok {
		return 0, apperrors.ErrLicenseNotFound
	}
	l.Status = entitlement.StatusExpired
	l.UpdatedAt = at
	r.licenses[tenantID] = l

	disabled := 0
	for k, tm := range r.tenantModules {
		if k.tenantID != tenantID || !tm.Enabled {
			continue
		}
		if m, ok := r.modules[k.code]; ok && m.Core {
			continue
		}
		tm.Enabled = false
		tm.UpdatedAt = at
		r.tenantModules[k] = tm
		disabled++
	}
	return disabled, nil
}
