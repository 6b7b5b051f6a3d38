package leads_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/leads"
	"github.com/jrsteele09/go-tenant-guard/tenantctx"
	"github.com/stretchr/testify/require"
)

func tenantCtx(tenantID, userID string) context.Context {
	return tenantctx.WithTenant(context.Background(), tenantctx.New(tenantID, userID, "", nil, nil))
}

func TestStore_TenantScoped(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := leads.NewStore(func() time.Time { return now })

	l, err := s.Add(tenantCtx("T1", "U1"), leads.Lead{Name: " Acme ", TenantID: "T2"})
	require.NoError(t, err)
	require.NotEmpty(t, l.ID)
	require.Equal(t, "T1", l.TenantID)
	require.Equal(t, "Acme", l.Name)
	require.Equal(t, "U1", l.CreatedBy)
	require.Equal(t, "api", l.Source)
	require.Equal(t, now, l.CreatedAt)

	t1, err := s.List(tenantCtx("T1", "U1"))
	require.NoError(t, err)
	require.Len(t, t1, 1)

	t2, err := s.List(tenantCtx("T2", "U2"))
	require.NoError(t, err)
	require.Empty(t, t2)
}

func TestStore_RequiresTenant(t *testing.T) {
	s := leads.NewStore(nil)

	_, err := s.Add(context.Background(), leads.Lead{Name: "Acme"})
	require.ErrorIs(t, err, apperrors.ErrTenantIdentityMissing)

	_, err = s.List(context.Background())
	require.ErrorIs(t, err, apperrors.ErrTenantIdentityMissing)

	_, err = s.Add(tenantCtx("T1", "U1"), leads.Lead{Name: "  "})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestStore_ConcurrentTenants(t *testing.T) {
	s := leads.NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := tenantCtx(fmt.Sprintf("T%d", i%2), "U")
			_, err := s.Add(ctx, leads.Lead{Name: fmt.Sprintf("lead-%d", i)})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for _, tenantID := range []string{"T0", "T1"} {
		got, err := s.List(tenantCtx(tenantID, "U"))
		require.NoError(t, err)
		require.Len(t, got, 10)
		for _, l := range got {
			require.Equal(t, tenantID, l.TenantID)
		}
	}
}
