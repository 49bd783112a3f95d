// Package httpapi exposes the authentication service over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address string
	auth    *services.AuthService
	tokens  *auth.TokenAuthority
	logger  logging.Logger
}

func NewServer(a string, l logging.Logger, svc *services.AuthService, tokens *auth.TokenAuthority) *Server {
	return &Server{
		address: a,
		auth:    svc,
		tokens:  tokens,
		logger:  l.With("module", "http_server"),
	}
}

// Handler returns the route table. Split out from Run so tests can drive
// it through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sign-up", s.handleSignUp)
	mux.HandleFunc("POST /v1/2fa/setup", s.handleSetup2FA)
	mux.HandleFunc("POST /v1/sign-in", s.handleSignIn)
	mux.HandleFunc("POST /v1/sign-in/2fa", s.handleVerifySignIn2FA)
	mux.HandleFunc("POST /v1/sign-in/refresh", s.handleRefreshTokens)

	mux.HandleFunc("GET /v1/me", s.withAccessToken(s.handleGetUser))
	mux.HandleFunc("DELETE /v1/me", s.withAccessToken(s.handleDeleteUser))
	mux.HandleFunc("GET /v1/me-public/{username}", s.handleGetUserPublic)

	return mux
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
