package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/internal/logging"
	"github.com/jrsteele09/go-tenant-guard/internal/process"
	"github.com/jrsteele09/go-tenant-guard/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running gateway: %s\n", err)
	}
	log.Printf("Gateway stopped\n")
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
	process.DisplayAppname(c.GetAppName() + " Gateway")

	codec, _, err := process.NewCodec(c)
	if err != nil {
		return err
	}
	upstream, err := url.Parse(c.GetUpstreamURL())
	if err != nil {
		return fmt.Errorf("UPSTREAM_URL: %w", err)
	}

	// The edge is stateless: revocation is checked by the services.
	gw, err := server.NewGateway(c, server.GatewayDeps{
		Verifier: auth.NewVerifier(codec, nil),
		Upstream: upstream,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gw.RateLimiter().RunPrune(ctx, time.Minute, 10*time.Minute)

	logger.Info().Str("upstream", upstream.String()).Msg("gateway configured")
	return process.Serve(&http.Server{
		Addr:              c.GetPort(),
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}, logger)
}
