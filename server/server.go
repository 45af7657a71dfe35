// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacklok/toolhive-expression/expression"
	"github.com/stacklok/toolhive-expression/httperr"
	"github.com/stacklok/toolhive-expression/loader"
	"github.com/stacklok/toolhive-expression/metrics"
	"github.com/stacklok/toolhive-expression/recovery"
	"github.com/stacklok/toolhive-expression/template"
	httpval "github.com/stacklok/toolhive-expression/validation/http"
	"github.com/stacklok/toolhive-expression/validation/identifier"
)

const (
	// NameHeader sets the diagnostic name of the request's expression when
	// the config does not name it.
	NameHeader = "X-Expression-Name"

	// MaxBodyBytes limits the size of a request body.
	MaxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// Server serves the expression API. It is safe for concurrent use.
type Server struct {
	compilers      map[string]expression.Compiler
	defaultBackend string
	base           *expression.Config
	gatherer       prometheus.Gatherer
	logger         *slog.Logger
	handler        http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request failures and recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBaseConfig sets the config used by requests without their own. Its
// loader also resolves the variable types of requests that carry a config.
func WithBaseConfig(cfg *expression.Config) Option {
	return func(s *Server) {
		s.base = cfg
	}
}

// WithMetrics exposes the metrics gathered by gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// New creates a Server for compilers keyed by backend name. Requests that do
// not name a backend use defaultBackend.
func New(compilers map[string]expression.Compiler, defaultBackend string, opts ...Option) (*Server, error) {
	if _, ok := compilers[defaultBackend]; !ok {
		return nil, fmt.Errorf("%w: default backend %q has no compiler", expression.ErrInvalidArgument, defaultBackend)
	}

	s := &Server{
		compilers:      compilers,
		defaultBackend: defaultBackend,
		base:           expression.NewConfig(loader.New()),
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.base.Validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("POST /v1/eval", s.handleEval)
	mux.HandleFunc("POST /v1/render", s.handleRender)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
	}
	s.handler = recovery.Middleware(s.logger)(mux)

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("expression API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down expression API: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	req, compiler, cfg, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch {
	case req.Template != "" && req.Expression != "":
		err = httperr.New("request must carry either an expression or a template", http.StatusBadRequest)
	case req.Template != "":
		_, err = template.Parse(compiler, req.Template, cfg)
	default:
		_, err = compiler.Compile(req.Expression, cfg)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{Valid: true})
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	req, compiler, cfg, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	compiled, err := compiler.Compile(req.Expression, cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := compiled.Eval(req.Vars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{
		Valid:  true,
		Kind:   result.Kind().String(),
		Result: jsonValue(result),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, compiler, cfg, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tmpl, err := template.Parse(compiler, req.Template, cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := tmpl.Render(req.Vars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{Valid: true, Output: &out})
}

// decode reads and validates a request, and returns the compiler and config
// it selects.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*Request, expression.Compiler, *expression.Config, error) {
	if err := httpval.ValidateMediaType(r.Header.Get("Content-Type"), "application/json"); err != nil {
		return nil, nil, nil, httperr.WithCode(err, http.StatusUnsupportedMediaType)
	}

	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, nil, nil, httperr.WithCode(err, http.StatusBadRequest)
	}
	if err := identifier.ValidateNames(req.Vars); err != nil {
		return nil, nil, nil, httperr.WithCode(err, http.StatusBadRequest)
	}

	backend := req.Backend
	if backend == "" {
		backend = s.defaultBackend
	}
	compiler, ok := s.compilers[backend]
	if !ok {
		return nil, nil, nil, httperr.New(fmt.Sprintf("unknown backend %q", backend), http.StatusBadRequest)
	}

	cfg := s.base.Clone()
	if req.Config != nil {
		if err := identifier.ValidateNames(req.Config.VariableTypes); err != nil {
			return nil, nil, nil, httperr.WithCode(err, http.StatusBadRequest)
		}
		cfg = req.Config.Config(s.base.Loader())
	}
	if name := r.Header.Get(NameHeader); name != "" {
		if err := httpval.ValidateHeaderValue(name); err != nil {
			return nil, nil, nil, httperr.WithCode(fmt.Errorf("invalid %s header: %w", NameHeader, err), http.StatusBadRequest)
		}
		// The header only names documents the config leaves unnamed.
		if _, named := cfg.Name(); !named {
			cfg.WithName(name)
		}
	}
	return req, compiler, cfg, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httperr.Code(err)
	resp := &Response{Error: err.Error()}
	for _, ce := range template.CompileErrors(err) {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
			Name:    ce.Name,
			Line:    ce.Position.Line,
			Column:  ce.Position.Column,
			Cursor:  ce.Cursor,
			Message: ce.Message,
			Source:  ce.Source,
		})
	}
	if len(resp.Diagnostics) > 0 {
		resp.Error = fmt.Sprintf("%d compile error(s)", len(resp.Diagnostics))
	}

	level := slog.LevelDebug
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "expression request failed",
		"path", r.URL.Path,
		"status", code,
		"error", err,
	)
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonValue converts a value to data encoding/json can marshal. Map keys are
// rendered as strings.
func jsonValue(v expression.Value) any {
	switch v.Kind() {
	case expression.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out
	case expression.KindMap:
		entries, _ := v.AsMap()
		keys := make([]string, 0, len(entries))
		byKey := make(map[string]expression.Value, len(entries))
		for k, item := range entries {
			ks := fmt.Sprint(k)
			keys = append(keys, ks)
			byKey[ks] = item
		}
		sort.Strings(keys)
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = jsonValue(byKey[k])
		}
		return out
	default:
		return v.Native()
	}
}
