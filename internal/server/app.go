// Package server initializes and runs the authentication server.
// It selects the storage backend, wires the services and the HTTP API,
// and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/httpapi"
	"github.com/dmitrijs2005/keygate/internal/server/services"
	"github.com/dmitrijs2005/keygate/internal/server/storage"
	"github.com/dmitrijs2005/keygate/internal/server/users"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	authService *services.AuthService
	tokens      *auth.TokenAuthority
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	store, err := newStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	repo := users.NewStoreRepository(store)

	tokens := auth.NewTokenAuthority(
		auth.TokenConfig{Secret: []byte(c.TempTokenSecret), Validity: c.TempTokenValidityDuration},
		auth.TokenConfig{Secret: []byte(c.AccessTokenSecret), Validity: c.AccessTokenValidityDuration},
		auth.TokenConfig{Secret: []byte(c.RefreshTokenSecret), Validity: c.RefreshTokenValidityDuration},
	)

	authService := services.NewAuthService(repo, tokens, c.AppName)

	return &App{config: c, logger: logger, authService: authService, tokens: tokens}, nil
}

func newStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.StorageBackend {
	case config.StorageBackendDynamoDB:
		return storage.NewDynamoDBStore(ctx, storage.DynamoDBOptions{
			Table:           c.DynamoDBTable,
			Region:          c.DynamoDBRegion,
			Endpoint:        c.DynamoDBEndpoint,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
		})
	case config.StorageBackendPostgres:
		return storage.NewPostgresStore(c.DatabaseDSN)
	case config.StorageBackendMemory:
		return storage.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddr, app.logger, app.authService, app.tokens)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

}
