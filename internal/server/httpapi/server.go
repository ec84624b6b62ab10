// Package httpapi exposes the authentication and pairing flows over
// HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/services"
)

type ServerConfig struct {
	ListenAddr               string
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	GracefulShutdownDuration time.Duration
}

// Server routes the public API. Terminal and account pairing share one
// handler set, parameterized by service instance.
type Server struct {
	cfg    *ServerConfig
	slog   *slog.Logger
	logger logging.Logger
	auth   *services.AuthService
	tokens *tokenVerifier
	srv    *http.Server
}

func New(cfg *ServerConfig, appCfg *config.Config, slogger *slog.Logger, logger logging.Logger,
	auth *services.AuthService, terminal, account *services.PairingService) *Server {

	srv := &Server{
		cfg:    cfg,
		slog:   slogger,
		logger: logger,
		auth:   auth,
		tokens: &tokenVerifier{secretKey: []byte(appCfg.SecretKey)},
	}

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(terminal, account),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv
}

func (srv *Server) getRouter(terminal, account *services.PairingService) http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Post("/auth", srv.handleSignatureLogin)
	mux.With(srv.httpLogger).Post("/auth/ad", srv.handleDirectoryLogin)
	mux.With(srv.httpLogger, srv.requireToken).Get("/auth/ad/nas-credentials", srv.handleNASCredentials)

	srv.mountPairing(mux, "/auth/request", "/auth/response", terminal)
	srv.mountPairing(mux, "/auth/account/request", "/auth/account/response", account)

	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)

	return mux
}

func (srv *Server) mountPairing(mux *chi.Mux, requestPath, responsePath string, svc *services.PairingService) {
	mux.With(srv.httpLogger).Post(requestPath, srv.handlePairingRequest(svc))
	mux.With(srv.httpLogger).Get(requestPath+"/status", srv.handlePairingStatus(svc))
	mux.With(srv.httpLogger, srv.requireToken).Post(responsePath, srv.handlePairingResponse(svc))
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.slog, next)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

// RunInBackground starts serving without blocking the caller.
func (srv *Server) RunInBackground() {
	go func() {
		srv.logger.Info(context.Background(), "starting HTTP server", "addr", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error(context.Background(), "HTTP server failed", "err", err)
		}
	}()
}

// Shutdown drains in-flight requests within the configured grace period.
func (srv *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.logger.Error(ctx, "graceful HTTP server shutdown failed", "err", err)
		return
	}
	srv.logger.Info(ctx, "HTTP server stopped")
}
