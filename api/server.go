// Package api is the optional HTTP request surface named in spec.md
// §1's explicit out-of-core collaborators: a thin chi router over the
// engine's set/get/delete operations, the Go-idiomatic counterpart of
// the original axum router in main.rs.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/flashkv/flashkv/internal/engine"
)

// NewRouter builds the chi router exposing POST /set, POST /get and
// DELETE /delete over eng.
func NewRouter(eng *engine.Engine, log *zap.SugaredLogger) http.Handler {
	h := &handler{eng: eng, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Post("/set", h.set)
	r.Post("/get", h.get)
	r.Delete("/delete", h.delete)
	return r
}
