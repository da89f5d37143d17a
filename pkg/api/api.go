// Package api serves the read side of the ingested data over HTTP. It
// composes the relational store and the time-series gateway behind the
// shared flat-record shape so handlers never care which store a record
// came from.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pagepulse/pagepulse/pkg/coach"
	"github.com/pagepulse/pagepulse/pkg/config"
	"github.com/pagepulse/pagepulse/pkg/flatrecord"
	"github.com/pagepulse/pagepulse/pkg/store"
	"github.com/pagepulse/pagepulse/pkg/tsdb"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.ServerConfig
	store      store.Store
	tsdb       tsdb.Gateway
	classifier *coach.Classifier

	coachSource    flatrecord.Source
	pagexraySource flatrecord.Source

	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates an HTTP server over an already started store and
// time-series gateway.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.ServerConfig,
	st store.Store,
	ts tsdb.Gateway,
	classifier *coach.Classifier,
) Server {
	return &server{
		log:            log.WithField("component", "api"),
		cfg:            cfg,
		store:          st,
		tsdb:           ts,
		classifier:     classifier,
		coachSource:    store.NewCoachSource(st),
		pagexraySource: store.NewPagexraySource(st),
	}
}

// Start builds the router and begins serving. The listener is bound
// synchronously so a port conflict fails fast.
func (s *server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Listen).Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")

	return nil
}
