package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	entitlementrepofakes "github.com/jrsteele09/go-tenant-guard/entitlement/repofakes"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/internal/logging"
	"github.com/jrsteele09/go-tenant-guard/internal/process"
	"github.com/jrsteele09/go-tenant-guard/leads"
	"github.com/jrsteele09/go-tenant-guard/revocation"
	"github.com/jrsteele09/go-tenant-guard/server"
	"github.com/jrsteele09/go-tenant-guard/store/postgres"
	tenantrepofakes "github.com/jrsteele09/go-tenant-guard/tenants/repofakes"
	"github.com/jrsteele09/go-tenant-guard/token"
	fakeuserrepo "github.com/jrsteele09/go-tenant-guard/users/repofake"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running service: %s\n", err)
	}
	log.Printf("Service stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(c.GetEnv(), c.GetLogLevel())
	process.DisplayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readiness := map[string]server.ReadinessCheck{}

	codec, signer, err := process.NewCodec(c)
	if err != nil {
		return err
	}

	store, closeStore, err := revocationStore(ctx, c, logger, readiness)
	if err != nil {
		return err
	}
	defer closeStore()
	revoker := revocation.NewRevoker(store, codec,
		revocation.WithFailOpen(c.GetRevocationFailOpen()),
		revocation.WithTimeout(c.GetRevocationTimeout()),
		revocation.WithLogger(logger),
	)

	repos, closeRepos, err := repositories(ctx, c, logger, readiness)
	if err != nil {
		return err
	}
	defer closeRepos()
	if _, err := server.InitialiseSystem(ctx, repos, c, time.Now, logger); err != nil {
		return fmt.Errorf("initialise system: %w", err)
	}

	entOpts := []entitlement.Option{
		entitlement.WithTimeout(c.GetEntitlementTimeout()),
		entitlement.WithLogger(logger),
	}
	licenses := entitlement.NewAdmin(repos.Entitlements, entOpts...)
	sessions, err := auth.NewSessionService(
		auth.Repos{Users: repos.Users, Tenants: repos.Tenants},
		codec,
		revoker,
		auth.WithUserLimits(licenses),
		auth.WithSessionLogger(logger),
	)
	if err != nil {
		return err
	}

	deps := server.ServiceDeps{
		Verifier:  auth.NewVerifier(codec, revoker),
		Sessions:  sessions,
		Gate:      entitlement.NewGate(repos.Entitlements, entOpts...),
		Licenses:  licenses,
		Leads:     leads.NewStore(nil),
		Readiness: readiness,
	}
	if kp, ok := signer.(*token.KeyPairSigner); ok {
		deps.JWKS = kp
	}
	svc, err := server.NewService(c, deps, logger)
	if err != nil {
		return err
	}

	go entitlement.NewSweeper(repos.Entitlements, entOpts...).Run(ctx, c.GetLicenseSweepInterval())
	go svc.RateLimiter().RunPrune(ctx, time.Minute, 10*time.Minute)

	return process.Serve(&http.Server{
		Addr:              c.GetPort(),
		Handler:           svc,
		ReadHeaderTimeout: 10 * time.Second,
	}, logger)
}

func noClose() {}

// closeWith returns a cleanup func that logs a failed close.
func closeWith(logger zerolog.Logger, name string, closer func() error) func() {
	return func() {
		if err := closer(); err != nil {
			logger.Error().Err(err).Str("resource", name).Msg("close failed")
		}
	}
}

// revocationStore uses Redis when REDIS_ADDR is set. The in-memory store is
// per process and is refused in production.
func revocationStore(ctx context.Context, c config.Config, logger zerolog.Logger, readiness map[string]server.ReadinessCheck) (revocation.Store, func(), error) {
	if c.GetRedisAddr() == "" {
		if c.IsProduction() {
			return nil, noClose, errors.New("REDIS_ADDR is required in production")
		}
		logger.Warn().Msg("REDIS_ADDR not set, revocations are held in memory and are not shared between instances")
		mem := revocation.NewMemoryStore(nil)
		go mem.RunCleanup(ctx, time.Minute)
		return mem, noClose, nil
	}

	client, err := revocation.NewRedisClient(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB(), c.GetRevocationTimeout())
	if err != nil {
		return nil, noClose, err
	}
	readiness["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	logger.Info().Str("addr", c.GetRedisAddr()).Msg("revocation store: redis")
	return revocation.NewRedisStore(client), closeWith(logger, "redis", client.Close), nil
}

// repositories uses Postgres when POSTGRES_DSN is set, otherwise in-memory
// registries that are lost on restart.
func repositories(ctx context.Context, c config.Config, logger zerolog.Logger, readiness map[string]server.ReadinessCheck) (server.BootstrapRepos, func(), error) {
	if c.GetPostgresDSN() == "" {
		if c.IsProduction() {
			return server.BootstrapRepos{}, noClose, errors.New("POSTGRES_DSN is required in production")
		}
		logger.Warn().Msg("POSTGRES_DSN not set, using in-memory tenant, user and entitlement stores")
		return server.BootstrapRepos{
			Tenants:      tenantrepofakes.NewFakeTenantRepo(),
			Users:        fakeuserrepo.NewFakeUserRepo(),
			Entitlements: entitlementrepofakes.NewFakeEntitlementRepo(),
		}, noClose, nil
	}

	db, err := postgres.Connect(c.GetPostgresDSN())
	if err != nil {
		return server.BootstrapRepos{}, noClose, err
	}
	closeDB := closeWith(logger, "postgres", db.Close)
	if err := db.Migrate(ctx); err != nil {
		closeDB()
		return server.BootstrapRepos{}, noClose, fmt.Errorf("migrate: %w", err)
	}
	readiness["postgres"] = db.Ping
	repo := postgres.NewRepository(db.DB, logger)
	return server.BootstrapRepos{
		Tenants:      repo,
		Users:        postgres.NewUserRepository(db.DB, logger),
		Entitlements: repo,
	}, closeDB, nil
}
