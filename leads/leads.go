// Package leads is a small tenant-scoped record store used to exercise the
// authentication and entitlement gates end to end. Every operation takes its
// tenant from the request context, never from the caller.
package leads

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenantctx"
)

type Lead struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Source    string    `json:"source"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	leads   map[string][]Lead // tenant id to leads
	mu      sync.RWMutex
	nowFunc func() time.Time
}

func NewStore(nowFunc func() time.Time) *Store {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Store{
		leads:   make(map[string][]Lead),
		nowFunc: nowFunc,
	}
}

// Add stores a lead for the tenant in ctx. ID, TenantID, CreatedBy and
// CreatedAt are assigned here.
func (s *Store) Add(ctx context.Context, lead Lead) (Lead, error) {
	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return Lead{}, err
	}
	lead.Name = strings.TrimSpace(lead.Name)
	if lead.Name == "" {
		return Lead{}, apperrors.Wrapf(apperrors.ErrInvalidInput, "lead name is required")
	}
	if lead.Source == "" {
		lead.Source = "api"
	}
	lead.ID = uuid.NewString()
	lead.TenantID = tc.TenantID()
	lead.CreatedBy = tc.UserID()
	lead.CreatedAt = s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.TenantID] = append(s.leads[lead.TenantID], lead)
	return lead, nil
}

// List returns the leads of the tenant in ctx, oldest first.
func (s *Store) List(ctx context.Context) ([]Lead, error) {
	tc, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.leads[tc.TenantID()]), nil
}
