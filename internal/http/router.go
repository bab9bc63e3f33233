package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"handbook-ai/internal/handlers"
	"handbook-ai/internal/rag"
	"handbook-ai/internal/storage"
	"handbook-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine    rag.Engine
	SessionStore storage.SessionStore
	VectorIndex  vectorstore.VectorIndex
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	sessionHandler := handlers.NewSessionHandler(deps.SessionStore)
	healthHandler := handlers.NewHealthHandler(deps.VectorIndex)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}/messages", sessionHandler.History)
			r.Delete("/{id}", sessionHandler.Delete)
		})
	})

	return r
}
