package tenantrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]tenants.Tenant
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]tenants.Tenant),
	}
}

func (tr *FakeTenantRepo) Upsert(_ context.Context, tenant *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	tr.tenants[tenant.ID] = *tenant
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tenants[tenantID]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	return &t, nil
}

func (tr *FakeTenantRepo) List(_ context.Context, offset, limit int) ([]*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	list := make([]*tenants.Tenant, 0, len(tr.tenants))
	for _, t := range tr.tenants {
		t := t
		list = append(list, &t)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return page(list, offset, limit), nil
}

func (tr *FakeTenantRepo) SetActive(_ context.Context, tenantID string, active bool) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	t, ok := tr.tenants[tenantID]
	if !ok {
		return apperrors.ErrTenantNotFound
	}
	t.Active = active
	tr.tenants[tenantID] = t
	return nil
}

func page[T any](list []T, offset, limit int) []T {
	if offset < 0 || offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
