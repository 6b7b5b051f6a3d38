package revocation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/revocation"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const secretStr = "0123456789abcdef0123456789abcdef"

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

type testFixture struct {
	clock *testClock
	codec *token.Codec
	store *revocation.MemoryStore
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := token.NewCodec(
		token.NewHMACSigner(secretStr),
		token.WithTokenExpiry(15*time.Minute, 24*time.Hour),
		token.WithNowFunc(clock.Now),
	)
	return &testFixture{
		clock: clock,
		codec: codec,
		store: revocation.NewMemoryStore(clock.Now),
	}
}

// failingStore fails every call, optionally after blocking until ctx is done.
type failingStore struct {
	block bool
}

func (s failingStore) Add(ctx context.Context, _ string, _ time.Duration) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return errors.New("connection refused")
}

func (s failingStore) Exists(ctx context.Context, _ string) (bool, error) {
	if s.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return false, errors.New("connection refused")
}

func TestKey(t *testing.T) {
	k1 := revocation.Key("a.b.c")
	require.Equal(t, k1, revocation.Key("a.b.c"))
	require.NotEqual(t, k1, revocation.Key("a.b.d"))
	require.Len(t, k1, len("revoked:")+64)
	require.NotContains(t, k1, "a.b.c")
}

func TestMemoryStore_TTL(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Add(ctx, "k", time.Minute))
	ok, err := f.store.Exists(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	f.clock.Advance(59 * time.Second)
	ok, _ = f.store.Exists(ctx, "k")
	require.True(t, ok)

	f.clock.Advance(time.Second)
	ok, _ = f.store.Exists(ctx, "k")
	require.False(t, ok)
	require.Equal(t, 1, f.store.Len())

	require.Equal(t, 1, f.store.Cleanup())
	require.Equal(t, 0, f.store.Len())
}

func TestRevoker_RoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	r := revocation.NewRevoker(f.store, f.codec, revocation.WithLogger(zerolog.Nop()))

	access, err := f.codec.IssueAccess("U1", "u1@t1.example.com", "T1", []string{"AGENT"}, []string{"leads:read"})
	require.NoError(t, err)
	other, err := f.codec.IssueAccess("U2", "u2@t1.example.com", "T1", nil, nil)
	require.NoError(t, err)

	revoked, err := r.IsRevoked(ctx, access)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, access))

	revoked, err = r.IsRevoked(ctx, access)
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, other)
	require.NoError(t, err)
	require.False(t, revoked)

	// The entry lives exactly as long as the token.
	f.clock.Advance(15 * time.Minute)
	revoked, err = r.IsRevoked(ctx, access)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRevoker_RefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	r := revocation.NewRevoker(f.store, f.codec, revocation.WithLogger(zerolog.Nop()))

	refresh, err := f.codec.IssueRefresh("U1")
	require.NoError(t, err)
	require.NoError(t, r.Revoke(ctx, refresh))

	f.clock.Advance(23 * time.Hour)
	revoked, err := r.IsRevoked(ctx, refresh)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRevoker_ExpiredTokenIsNoop(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	r := revocation.NewRevoker(f.store, f.codec, revocation.WithLogger(zerolog.Nop()))

	access, err := f.codec.IssueAccess("U1", "", "T1", nil, nil)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	require.NoError(t, r.Revoke(ctx, access))
	require.Equal(t, 0, f.store.Len())
}

func TestRevoker_RejectsUnverifiableToken(t *testing.T) {
	f := setupTestFixture(t)
	r := revocation.NewRevoker(f.store, f.codec, revocation.WithLogger(zerolog.Nop()))

	err := r.Revoke(context.Background(), "not-a-token")
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.Equal(t, 0, f.store.Len())
}

func TestRevoker_FailClosed(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	access, err := f.codec.IssueAccess("U1", "", "T1", nil, nil)
	require.NoError(t, err)

	r := revocation.NewRevoker(failingStore{}, f.codec, revocation.WithLogger(zerolog.Nop()))
	_, err = r.IsRevoked(ctx, access)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	err = r.Revoke(ctx, access)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestRevoker_FailOpen(t *testing.T) {
	f := setupTestFixture(t)
	access, err := f.codec.IssueAccess("U1", "", "T1", nil, nil)
	require.NoError(t, err)

	r := revocation.NewRevoker(failingStore{}, f.codec,
		revocation.WithFailOpen(true),
		revocation.WithLogger(zerolog.Nop()),
	)
	revoked, err := r.IsRevoked(context.Background(), access)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRevoker_TimeoutIsBounded(t *testing.T) {
	f := setupTestFixture(t)
	access, err := f.codec.IssueAccess("U1", "", "T1", nil, nil)
	require.NoError(t, err)

	r := revocation.NewRevoker(failingStore{block: true}, f.codec,
		revocation.WithTimeout(20*time.Millisecond),
		revocation.WithLogger(zerolog.Nop()),
	)

	start := time.Now()
	_, err = r.IsRevoked(context.Background(), access)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := setupTestFixture(t)
	ctx := context.Background()
	r := revocation.NewRevoker(revocation.NewRedisStore(client), f.codec, revocation.WithLogger(zerolog.Nop()))

	access, err := f.codec.IssueAccess("U1", "", "T1", []string{"AGENT"}, nil)
	require.NoError(t, err)
	require.NoError(t, r.Revoke(ctx, access))

	key := revocation.Key(access)
	require.True(t, mr.Exists(key))
	v, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "1", v)
	require.Equal(t, 15*time.Minute, mr.TTL(key))

	revoked, err := r.IsRevoked(ctx, access)
	require.NoError(t, err)
	require.True(t, revoked)

	mr.FastForward(15 * time.Minute)
	revoked, err = r.IsRevoked(ctx, access)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := setupTestFixture(t)
	access, err := f.codec.IssueAccess("U1", "", "T1", nil, nil)
	require.NoError(t, err)

	mr.SetError("LOADING server is loading")
	r := revocation.NewRevoker(revocation.NewRedisStore(client), f.codec, revocation.WithLogger(zerolog.Nop()))
	_, err = r.IsRevoked(context.Background(), access)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
