package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler, logger *slog.Logger, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, "", map[string]string{"status": "ready"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/publishing/health", handler.getHealth)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(jwtSecret))
			r.Post("/publishing/posts", handler.createPost)
			r.Get("/publishing/posts", handler.listPosts)
			r.Get("/publishing/posts/{postID}", handler.getPost)
			r.Put("/publishing/posts/{postID}", handler.updatePost)
			r.Post("/publishing/posts/{postID}/publish", handler.publishPost)
			r.Post("/publishing/posts/{postID}/cancel", handler.cancelPost)
			r.Get("/publishing/posts/{postID}/targets", handler.listTargets)
			r.Get("/publishing/targets/{targetID}/analytics", handler.getTargetAnalytics)
			r.Post("/publishing/accounts/{accountID}/reconcile", handler.reconcileAccount)
		})
	})

	return r
}
