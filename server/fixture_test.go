package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	entitlementrepofakes "github.com/jrsteele09/go-tenant-guard/entitlement/repofakes"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/leads"
	"github.com/jrsteele09/go-tenant-guard/revocation"
	"github.com/jrsteele09/go-tenant-guard/server"
	tenantrepofakes "github.com/jrsteele09/go-tenant-guard/tenants/repofakes"
	"github.com/jrsteele09/go-tenant-guard/token"
	fakeuserrepo "github.com/jrsteele09/go-tenant-guard/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	secretStr      = "0123456789abcdef0123456789abcdef"
	issuer         = "com.testissuer"
	systemTenantID = "system"
	systemEmail    = "ops@system.example.com"
	systemPassword = "Operat0rPass"
	demoPassword   = "Passw0rd!"
	adminT1        = "admin@t1.example.com"
	agentT1        = "agent@t1.example.com"
	adminT2        = "admin@t2.example.com"
)

const unauthorizedBody = `{"error_code":"UNAUTHORIZED","error_message":"authentication required"}`

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
	clock   *testClock
	codec   *token.Codec
	store   *revocation.MemoryStore
	users   *fakeuserrepo.FakeUserRepo
	ents    *entitlementrepofakes.FakeEntitlementRepo
	sweeper *entitlement.Sweeper
	leads   *leads.Store
	ready   map[string]server.ReadinessCheck
	srv     *server.Server
}

// setupTestFixture boots the service on in-memory stores seeded with the
// system tenant and the T1 (active) / T2 (lapsed) demo tenants. Environment
// overrides are applied before the config is read.
func setupTestFixture(t *testing.T, env map[string]string) *testFixture {
	t.Helper()
	t.Setenv("SYSTEM_TENANT_ID", systemTenantID)
	t.Setenv("SYSTEM_ADMIN_EMAIL", systemEmail)
	t.Setenv("SYSTEM_ADMIN_PASSWORD", systemPassword)
	t.Setenv("SEED_DEMO_DATA", "true")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg := config.New()
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
	ur := fakeuserrepo.NewFakeUserRepo()
	er := entitlementrepofakes.NewFakeEntitlementRepo()
	generated, err := server.InitialiseSystem(ctx, server.BootstrapRepos{Tenants: tr, Users: ur, Entitlements: er}, cfg, clock.Now, zerolog.Nop())
	require.NoError(t, err)
	require.Empty(t, generated)

	entOpts := []entitlement.Option{entitlement.WithNowFunc(clock.Now), entitlement.WithLogger(zerolog.Nop())}
	licenses := entitlement.NewAdmin(er, entOpts...)
	sessions, err := auth.NewSessionService(
		auth.Repos{Users: ur, Tenants: tr},
		codec,
		revoker,
		auth.WithUserLimits(licenses),
		auth.WithSessionLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	f := &testFixture{
		clock:   clock,
		codec:   codec,
		store:   store,
		users:   ur,
		ents:    er,
		sweeper: entitlement.NewSweeper(er, entOpts...),
		leads:   leads.NewStore(clock.Now),
		ready:   map[string]server.ReadinessCheck{"memory": func(context.Context) error { return nil }},
	}
	f.srv, err = server.NewService(cfg, server.ServiceDeps{
		Verifier:  auth.NewVerifier(codec, revoker),
		Sessions:  sessions,
		Gate:      entitlement.NewGate(er, entOpts...),
		Licenses:  licenses,
		Leads:     f.leads,
		Readiness: f.ready,
	}, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, method, path, bearer string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T, tenantID, email, password string) auth.TokenPair {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{
		"tenant_id": tenantID,
		"email":     email,
		"password":  password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decodeBody[auth.APIError](t, rec).Code)
}
