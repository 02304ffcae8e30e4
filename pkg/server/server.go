// Copyright 2026 The Certattest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the attestation service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/atomic"

	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/service"
)

const (
	DefaultMaxBodyBytes = 64 * 1024

	requestIDHeader = "X-Request-ID"
)

type Config struct {
	ListenAddr   string
	MetricsAddr  string
	EnablePprof  bool
	MaxBodyBytes int64

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	IdleTimeout              time.Duration
}

type Server struct {
	cfg     *Config
	svc     *service.Service
	isReady atomic.Bool

	srv        *http.Server
	metricsSrv *http.Server
}

func New(cfg *Config, svc *service.Service) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.GracefulShutdownDuration <= 0 {
		cfg.GracefulShutdownDuration = 30 * time.Second
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
	}
	s.isReady.Store(true)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Handler returns the API handler with size limits, instrumentation and CORS applied.
func (s *Server) Handler() http.Handler {
	handler := WithMaxBytes(s.router(), s.cfg.MaxBodyBytes)
	handler = promhttp.InstrumentHandlerDuration(MetricLatency, handler)
	handler = promhttp.InstrumentHandlerCounter(RequestsCount, handler)

	// cors.Default() configures to accept requests for all domains
	return cors.Default().Handler(handler)
}

func (s *Server) router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(requestID, accessLog, middleware.Recoverer)

	mux.Route("/api/v1/attestations", func(r chi.Router) {
		r.Post("/", s.handleAttest)
		r.Get("/{identity}", s.handleLookup)
		r.Post("/{identity}/verify", s.handleVerify)
	})

	mux.Get("/livez", s.handleLivenessCheck)
	mux.Get("/readyz", s.handleReadinessCheck)
	mux.Get("/drain", s.handleDrain)
	mux.Get("/undrain", s.handleUndrain)

	if s.cfg.EnablePprof {
		log.Logger.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

// requestID tags every request with an id, reusing a valid client supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.WithRequestID(r.Context(), id)))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.ContextLogger(r.Context()).Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleLivenessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "alive"})
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) handleDrain(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady.Swap(false) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "already draining"})
		return
	}
	log.Logger.Info("server marked as not ready")
	writeJSON(w, http.StatusOK, statusResponse{Status: "draining"})
}

func (s *Server) handleUndrain(w http.ResponseWriter, _ *http.Request) {
	if s.isReady.Swap(true) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "already ready"})
		return
	}
	log.Logger.Info("server marked as ready")
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

// RunInBackground starts the API listener and, when configured, the metrics
// listener. Listener failures are logged.
func (s *Server) RunInBackground() {
	if s.metricsSrv != nil {
		go func() {
			log.Logger.Infof("listening on metrics at %s", s.cfg.MetricsAddr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	go func() {
		log.Logger.Infof("listening on http at %s", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Errorw("http server failed", "error", err)
		}
	}()
}

// Shutdown marks the server not ready, waits out the drain period and then
// stops both listeners.
func (s *Server) Shutdown(ctx context.Context) {
	if s.isReady.Swap(false) && s.cfg.DrainDuration > 0 {
		log.Logger.Infof("draining for %s", s.cfg.DrainDuration)
		select {
		case <-time.After(s.cfg.DrainDuration):
		case <-ctx.Done():
		}
	}

	shutdown := func(name string, srv *http.Server) {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Logger.Errorf("%s server shutdown: %v", name, err)
			return
		}
		log.Logger.Infof("stopped %s server", name)
	}
	shutdown("http", s.srv)
	if s.metricsSrv != nil {
		shutdown("metrics", s.metricsSrv)
	}
}
