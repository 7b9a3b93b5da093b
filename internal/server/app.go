// Package server wires configuration, storage and services together and
// runs the gRPC and HTTP endpoints until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/server/config"
	"github.com/dmitrijs2005/boilerbudget/internal/server/httpapi"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/boilerbudget/internal/server/services"
	"github.com/dmitrijs2005/boilerbudget/internal/telemetry"

	gs "github.com/dmitrijs2005/boilerbudget/internal/server/grpc"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	shutdownTraces telemetry.ShutdownFunc
	userService    *services.UserService
	profileService *services.ProfileService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, logging.FormatJSON, c.LogLevel)

	shutdown, err := telemetry.Setup(ctx, "boilerbudget-server", c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	avatars := services.NewS3AvatarStore(c)
	us := services.NewUserService(db, rm, avatars, logger, c)
	ps := services.NewProfileService(db, rm, avatars, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		shutdownTraces: shutdown,
		userService:    us,
		profileService: ps,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.profileService, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.New(app.logger, app.profileService, app.config.SecretKey)
	if err := s.Run(ctx, app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	shutdownCtx := context.WithoutCancel(ctx)
	if err := app.shutdownTraces(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "trace shutdown", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(shutdownCtx, "db close", "error", err)
	}
	app.logger.Info(shutdownCtx, "App stopped")
}
