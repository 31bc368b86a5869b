// Package api serves the daemon's HTTP status API and the entity property
// history endpoint the scene viewer reads its initial window from.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

const gracefulShutdownTimeout = 5 * time.Second

// Server exposes the reconciler registry and the telemetry store over HTTP.
type Server struct {
	reconciler *scenetwin.Reconciler
	mode       func() scenetwin.Mode
	store      *databinding.Store
}

// NewServer returns a Server. mode reports the persisted reconciliation mode.
func NewServer(r *scenetwin.Reconciler, mode func() scenetwin.Mode, store *databinding.Store) *Server {
	return &Server{reconciler: r, mode: mode, store: store}
}

// Handler returns the router of every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/tags", func(r chi.Router) {
		r.Get("/", s.handleListTags)
		r.Get("/{tag}", s.handleGetTag)
	})
	r.Post("/workspaces/{workspace}/entity-properties/history", s.handleHistory)
	return r
}

// Proc returns a component.Proc serving the API on addr until the component
// stops.
func (s *Server) Proc(addr string, readTimeout, writeTimeout time.Duration) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context()).With(slog.String("addr", addr))
		srv := &http.Server{
			Addr:         addr,
			Handler:      s.Handler(),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			BaseContext:  func(_ net.Listener) context.Context { return l.Context() },
		}
		go func() {
			<-l.GraceContext().Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(l.Context()), gracefulShutdownTimeout)
			defer cancel()
			logger.Info("API server shutting down")
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("API server shutdown failed", slog.Any("error", err))
			}
		}()

		logger.Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal(fmt.Errorf("serve api: %w", err))
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mode":   s.mode().String(),
	})
}

// TagStatus describes one bound wrapper.
type TagStatus struct {
	Tag    string `json:"tag"`
	Kind   string `json:"kind"`
	State  string `json:"state"`
	Loaded bool   `json:"loaded"`
}

func tagStatus(tag string, obj scenetwin.Object) TagStatus {
	return TagStatus{
		Tag:    tag,
		Kind:   obj.Kind().String(),
		State:  string(obj.State()),
		Loaded: obj.IsLoaded(),
	}
}

func (s *Server) handleListTags(w http.ResponseWriter, _ *http.Request) {
	tags := []TagStatus{}
	for tag, obj := range s.reconciler.Registry().All() {
		tags = append(tags, tagStatus(tag, obj))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":  s.mode().String(),
		"tags":  tags,
		"count": len(tags),
	})
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	obj, ok := s.reconciler.Registry().Find(tag)
	if !ok {
		writeNotFound(w, fmt.Sprintf("tag %q is not bound", tag))
		return
	}
	writeJSON(w, http.StatusOK, tagStatus(tag, obj))
}
