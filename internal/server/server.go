// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package server exposes the demo apps over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/joamaki/rxplay/internal/gitfeed"
	"github.com/joamaki/rxplay/internal/weather"
	"github.com/joamaki/rxplay/stream"
)

type Config struct {
	Addr string
	// RefreshInterval is how often the event feed is refreshed. Zero
	// disables the periodic refresh.
	RefreshInterval time.Duration
}

type Server struct {
	cfg     Config
	feed    *gitfeed.Feed
	weather weather.Lookup
	log     *slog.Logger
	now     func() time.Time
}

func New(cfg Config, feed *gitfeed.Feed, lookup weather.Lookup, log *slog.Logger) *Server {
	return &Server{cfg: cfg, feed: feed, weather: lookup, log: log, now: time.Now}
}

// Handler returns the router with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Compress(5)).Group(func(r chi.Router) {
			r.Get("/dial", s.dial)
			r.Get("/weather", s.currentWeather)
			r.Get("/events", s.events)
			r.Post("/events/refresh", s.refresh)
		})
		// Compressing would hold back the stream.
		r.Get("/events/stream", s.eventStream)
	})
	return r
}

// refreshLoop refreshes the feed right away and then periodically until
// 'ctx' is cancelled. Failures are logged and retried on the next tick.
func (s *Server) refreshLoop(ctx context.Context) error {
	ticks := stream.StartWith(stream.Interval(s.cfg.RefreshInterval), -1)
	err := stream.Discard(ctx, stream.OnNext(ticks, func(int) {
		if err := s.feed.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("periodic refresh failed", "error", err)
		}
	}))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve starts the server and blocks until 'ctx' is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("starting server", "addr", "http://"+s.cfg.Addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.feed != nil {
		if err := s.feed.Load(ctx); err != nil {
			s.log.Warn("failed to load cached events", "error", err)
		}
		if s.cfg.RefreshInterval > 0 {
			eg.Go(func() error {
				return s.refreshLoop(egctx)
			})
		}
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.log.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
