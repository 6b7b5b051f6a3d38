// Package process holds the start-up and shutdown plumbing shared by the
// gateway and service binaries.
package process

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

func DisplayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// NewCodec builds the signer selected by configuration and a codec over it.
// The signer is returned as well so that key pair signers can publish a JWKS.
func NewCodec(c config.TokenConfig) (*token.Codec, token.Signer, error) {
	signer, err := token.NewSigner(token.SignerSettings{
		Algorithm:      c.GetSigningAlgorithm(),
		Secret:         c.GetJWTSecret(),
		PrivateKeyFile: c.GetPrivateKeyFile(),
		PublicKeyFile:  c.GetPublicKeyFile(),
		KeyID:          c.GetKeyID(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("[process.NewCodec] %w", err)
	}
	codec := token.NewCodec(signer,
		token.WithIssuer(c.GetIssuer()),
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
	)
	return codec, signer, nil
}

// Serve runs server until it fails or the process is asked to stop, then
// shuts it down gracefully.
func Serve(server *http.Server, logger zerolog.Logger) error {
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(server, logger)
	}()

	select {
	case err := <-errs:
		return err
	case sig := <-stopSignal():
		logger.Info().Str("signal", sig.String()).Msg("stopping")
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
