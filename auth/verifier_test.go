package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"case insensitive scheme", "bearer abc.def.ghi", "abc.def.ghi", false},
		{"surrounding spaces", "Bearer   abc.def.ghi  ", "abc.def.ghi", false},
		{"missing", "", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no token", "Bearer ", "", true},
		{"no separator", "Bearerabc", "", true},
		{"two tokens", "Bearer a.b.c d.e.f", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := auth.BearerToken(req)
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrMalformedRequest)
				require.True(t, apperrors.IsAuthentication(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPrincipal_Authorities(t *testing.T) {
	p := auth.NewPrincipal(&token.Claims{
		TenantID:    testTenantID,
		Roles:       []string{"AGENT", "MANAGER"},
		Permissions: []string{permLeadsRead},
	})

	require.Equal(t, []string{"ROLE_AGENT", "ROLE_MANAGER", permLeadsRead}, p.Authorities())
	require.True(t, p.HasRole("AGENT"))
	require.True(t, p.HasAuthority("ROLE_AGENT"))
	require.False(t, p.HasPermission("AGENT"), "roles are tagged, not bare")
	require.True(t, p.HasPermission(permLeadsRead))
	require.False(t, p.HasPermission(permLeadsWrite))
}

func TestVerifier_Verify(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	raw := f.agentToken(t)

	claims, err := f.verifier.VerifyStateless(raw)
	require.NoError(t, err)
	require.Equal(t, testTenantID, claims.TenantID)

	p, err := f.verifier.Verify(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, testUserID, p.UserID)
	require.Equal(t, testTenantID, p.TenantID)
	require.Equal(t, testUserEmail, p.Email)
	require.NotEmpty(t, p.TokenID)

	tc := p.TenantContext()
	require.Equal(t, testTenantID, tc.TenantID())
	require.Equal(t, []string{permLeadsRead}, tc.Permissions())

	require.NoError(t, f.revoker.Revoke(ctx, raw))

	// The edge path does not see revocations.
	_, err = f.verifier.VerifyStateless(raw)
	require.NoError(t, err)

	_, err = f.verifier.Verify(ctx, raw)
	require.ErrorIs(t, err, apperrors.ErrRevokedToken)
	require.True(t, apperrors.IsAuthentication(err))
}

func TestVerifier_RejectsRefreshAndExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	refresh, err := f.codec.IssueRefresh(testUserID)
	require.NoError(t, err)
	_, err = f.verifier.Verify(ctx, refresh)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	raw := f.agentToken(t)
	f.clock.Advance(15 * time.Minute)
	_, err = f.verifier.Verify(ctx, raw)
	require.ErrorIs(t, err, apperrors.ErrExpiredToken)
}

type brokenRevocation struct{}

func (brokenRevocation) IsRevoked(context.Context, string) (bool, error) {
	return false, apperrors.Wrapf(apperrors.ErrStoreUnavailable, "%v", errors.New("dial tcp: refused"))
}

func TestVerifier_StoreUnavailable(t *testing.T) {
	f := setupTestFixture(t)
	v := auth.NewVerifier(f.codec, brokenRevocation{})

	_, err := v.Verify(context.Background(), f.agentToken(t))
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	edgeOnly := auth.NewVerifier(f.codec, nil)
	_, err = edgeOnly.Verify(context.Background(), f.agentToken(t))
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
