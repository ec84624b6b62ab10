// Package server initializes and runs the termbind server: it opens the
// database, runs migrations, selects the credential-store backend, wires up
// the services and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/directory"
	"github.com/dmitrijs2005/termbind/internal/server/httpapi"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/pairings"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/termbind/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	slog   *slog.Logger
	db     *sql.DB
	srv    *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	creds, err := selectCredentialStore(ctx, cfg, db, manager)
	if err != nil {
		return nil, err
	}

	authenticator := directory.NewAuthenticator(directory.Config{
		Servers:     cfg.ADServers,
		ShortName:   cfg.ADShortName,
		Domain:      cfg.ADDomain,
		BaseDN:      cfg.ADBaseDN,
		DialTimeout: cfg.ADDialTimeout,
	}, logger)

	authService := services.NewAuthService(db, manager, creds, authenticator, cfg, logger)
	terminalPairing := services.NewPairingService(db, manager, pairings.Terminal, cfg, logger)
	accountPairing := services.NewPairingService(db, manager, pairings.Account, cfg, logger)

	srv := httpapi.New(&httpapi.ServerConfig{
		ListenAddr:               cfg.EndpointAddr,
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             30 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
	}, cfg, slogger, logger, authService, terminalPairing, accountPairing)

	return &App{config: cfg, logger: logger, slog: slogger, db: db, srv: srv}, nil
}

func selectCredentialStore(ctx context.Context, cfg *config.Config, db *sql.DB,
	manager repomanager.RepositoryManager) (credentials.Repository, error) {
	switch cfg.CredentialStore {
	case config.CredentialStorePostgres:
		return manager.Credentials(db), nil
	case config.CredentialStoreS3:
		return credentials.NewS3Repository(ctx, credentials.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown credential store backend: %q", cfg.CredentialStore)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	app.srv.RunInBackground()
	<-ctx.Done()

	app.srv.Shutdown()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "err", err)
	}
}
