package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-board/internal/middleware"
	"github.com/BuzzLyutic/todo-board/pkg/respond"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	Tasks  *TaskHandler
	Tags   *TagHandler
	Feed   http.Handler
	DB     Pinger
	Logger *zap.Logger
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter() // Создаем роутер
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(rt.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Recoverer)

	r.Get("/health", rt.health)
	r.Handle("/metrics", middleware.MetricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", rt.Tasks.List)
			r.Post("/", rt.Tasks.Create)
			r.Post("/quick", rt.Tasks.QuickAdd)
			r.Put("/order", rt.Tasks.Reorder)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.Tasks.Get)
				r.Patch("/", rt.Tasks.Update)
				r.Delete("/", rt.Tasks.Delete)
				r.Post("/toggle", rt.Tasks.Toggle)
				r.Post("/postpone", rt.Tasks.Postpone)
				r.Put("/schedule", rt.Tasks.Schedule)
				r.Put("/status", rt.Tasks.Move)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", rt.Tags.List)
			r.Post("/", rt.Tags.Create)
			r.Get("/{id}", rt.Tags.Get)
			r.Patch("/{id}", rt.Tags.Update)
			r.Delete("/{id}", rt.Tags.Delete)
		})

		r.Route("/views", func(r chi.Router) {
			r.Get("/today", rt.Tasks.Today)
			r.Get("/week", rt.Tasks.Week)
			r.Get("/board", rt.Tasks.Board)
		})

		r.Get("/stats", rt.Tasks.Stats)

		if rt.Feed != nil {
			r.Handle("/ws", rt.Feed)
		}
	})

	return r
}

func (rt Router) health(w http.ResponseWriter, r *http.Request) {
	if rt.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.DB.Ping(ctx); err != nil {
			rt.Logger.Warn("health check failed", zap.Error(err))
			respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
