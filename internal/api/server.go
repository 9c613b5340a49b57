// Package api serves the ledger over HTTP as JSON, with a websocket feed
// for live snapshots.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/gorilla/websocket"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	maxUploadBytes  = 10 << 20
)

// Importer turns a bank statement into transactions ready to store.
type Importer interface {
	Parse(ctx context.Context, r io.Reader) ([]model.NewTransaction, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Importer Importer
	Logger   *slog.Logger
	Now      func() time.Time
	Location *time.Location
	// TLS, when set, makes ListenAndServe serve HTTPS.
	TLS *tls.Config
}

// Server routes API requests to the identity provider, the store and the
// advisor.
type Server struct {
	identity  service.IdentityProvider
	store     service.LiveStorage
	advisor   service.Advisor
	importer  Importer
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader
	cfg       config.ServerConfig
}

// New creates a server. advisor may be nil, in which case the advice and
// chat routes answer 503.
func New(cfg config.ServerConfig, identity service.IdentityProvider, store service.LiveStorage, advisor service.Advisor, opts Options) *Server {
	s := &Server{
		identity:  identity,
		store:     store,
		advisor:   advisor,
		importer:  opts.Importer,
		logger:    common.LoggerOrDefault(opts.Logger),
		now:       opts.Now,
		loc:       opts.Location,
		tlsConfig: opts.TLS,
		cfg:       cfg,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}
	return s
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		TLSConfig:         s.tlsConfig,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr, "tls", s.tlsConfig != nil)
		if s.tlsConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

// today is now in the server's display location.
func (s *Server) today() time.Time {
	return s.now().In(s.loc)
}
