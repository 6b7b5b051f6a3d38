package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/revocation"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	tenantrepofakes "github.com/jrsteele09/go-tenant-guard/tenants/repofakes"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/jrsteele09/go-tenant-guard/users"
	fakeuserrepo "github.com/jrsteele09/go-tenant-guard/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	secretStr        = "0123456789abcdef0123456789abcdef"
	issuer           = "com.testissuer"
	testTenantID     = "T1"
	otherTenantID    = "T2"
	testUserID       = "U1"
	testUserEmail    = "agent@t1.example.com"
	testUserPassword = "Passw0rd!"
	permLeadsRead    = "leads:read"
	permLeadsWrite   = "leads:write"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testFixture holds all test dependencies
type testFixture struct {
	clock    *testClock
	codec    *token.Codec
	store    *revocation.MemoryStore
	revoker  *revocation.Revoker
	verifier *auth.Verifier
	users    *fakeuserrepo.FakeUserRepo
	tenants  *tenantrepofakes.FakeTenantRepo
	sessions *auth.SessionService
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec := token.NewCodec(
		token.NewHMACSigner(secretStr),
		token.WithIssuer(issuer),
		token.WithTokenExpiry(15*time.Minute, 7*24*time.Hour),
		token.WithNowFunc(clock.Now),
	)
	store := revocation.NewMemoryStore(clock.Now)
	revoker := revocation.NewRevoker(store, codec, revocation.WithLogger(zerolog.Nop()))

	tr := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, tr.Upsert(ctx, &tenants.Tenant{ID: testTenantID, Name: "Tenant One", Active: true}))
	require.NoError(t, tr.Upsert(ctx, &tenants.Tenant{ID: otherTenantID, Name: "Tenant Two", Active: true}))

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	ur := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, ur.Upsert(ctx, &users.User{
		ID:           testUserID,
		Email:        testUserEmail,
		PasswordHash: hash,
		Verified:     true,
		Tenants: []users.TenantMembership{
			{TenantID: testTenantID, Roles: []string{users.RoleAgent}, Permissions: []string{permLeadsRead}},
		},
	}))

	sessions, err := auth.NewSessionService(
		auth.Repos{Users: ur, Tenants: tr},
		codec,
		revoker,
		auth.WithSessionLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	return &testFixture{
		clock:    clock,
		codec:    codec,
		store:    store,
		revoker:  revoker,
		verifier: auth.NewVerifier(codec, revoker),
		users:    ur,
		tenants:  tr,
		sessions: sessions,
	}
}

func (f *testFixture) agentToken(t *testing.T) string {
	t.Helper()
	raw, err := f.codec.IssueAccess(testUserID, testUserEmail, testTenantID, []string{users.RoleAgent}, []string{permLeadsRead})
	require.NoError(t, err)
	return raw
}

func doRequest(h http.HandlerFunc, method, path, bearer string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

const unauthorizedBody = `{"error_code":"UNAUTHORIZED","error_message":"authentication required"}`
