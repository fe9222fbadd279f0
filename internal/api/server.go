/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package api implements the /v1 JSON:API request pipeline (spec §4.6,
// §6.1), structured like the teacher's internal/api/server.go: a chi
// router, a fixed middleware chain, and one error-translating wrapper
// around every handler.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/examplehooks"
	"github.com/resource-health/check-manager/internal/hooks"
)

// Server owns the chi router and the backend/hook registry handlers
// dispatch to. It implements manager.Runnable-style Start, which is how
// cmd/checkmanager runs it.
type Server struct {
	Addr    string
	handler http.Handler
	log     zerolog.Logger
}

// Config bundles the dependencies every handler needs.
type Config struct {
	Addr    string
	BaseURL string
	Backend checkbackend.CheckBackend
	Hooks   *hooks.Registry
	Log     zerolog.Logger
}

// New builds the Server and its route table.
func New(cfg Config) *Server {
	h := &handlers{backend: cfg.Backend, hooks: cfg.Hooks, baseURL: strings.TrimRight(cfg.BaseURL, "/"), log: cfg.Log}
	return &Server{Addr: cfg.Addr, handler: setupRoutes(h, cfg.Log), log: cfg.Log}
}

// Handler exposes the built router for embedding in an http.Server.
func (s *Server) Handler() http.Handler { return s.handler }

// Start runs the HTTP server until ctx is done, mirroring the teacher's
// manager.Runnable contract.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.handler}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

func setupRoutes(h *handlers, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(zerologMiddleware(log))
	r.Use(corsMiddleware)
	r.Use(authorizationHeaderMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", h.index)
		r.Route("/check_templates", func(r chi.Router) {
			r.Get("/", wrap(h.listCheckTemplates))
			r.Get("/{id}", wrap(h.getCheckTemplate))
		})
		r.Route("/checks", func(r chi.Router) {
			r.Get("/", wrap(h.listChecks))
			r.Post("/", wrap(h.createCheck))
			r.Get("/{id}", wrap(h.getCheck))
			r.Delete("/{id}", wrap(h.removeCheck))
			r.Post("/{id}/run/", wrap(h.runCheck))
		})
	})
	return r
}

// zerologMiddleware logs one line per request at Info level, adapted from
// the teacher's chi logging middleware.
func zerologMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request handled")
		})
	}
}

// authorizationHeaderMiddleware stashes the raw Authorization header on the
// request context so a GetSecurityScheme hook (examplehooks.OIDCSecurityScheme
// in the default chain) can retrieve it without handlers needing to know
// which security scheme is active.
func authorizationHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			r = r.WithContext(examplehooks.WithAuthorizationHeader(r.Context(), header))
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows any origin to read responses; the API carries no
// cookies or session state, so a permissive policy matches the teacher's
// manual CORS handling without pulling in a library never used elsewhere
// in the pack.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
