package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouteOptions struct {
	Origins   []string
	StaticDir string
}

func SetupRoutes(h *Handlers, opts RouteOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.listBooks)
			r.Post("/", h.createBook)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getBook)
				r.Put("/", h.updateBook)
				r.Delete("/", h.deleteBook)
				r.Get("/reviews", h.listReviews)
				r.Post("/reviews", h.createReview)
			})
		})
		r.Delete("/reviews/{id}", h.deleteReview)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Get("/{id}", h.getUser)
			r.Put("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.listTags)
			r.Post("/", h.createTag)
			r.Delete("/{id}", h.deleteTag)
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/", h.listImages)
			r.Post("/", h.createImage)
			r.Get("/ids", h.listImageIDs)
			r.Get("/{id}", h.getImage)
			r.Delete("/{id}", h.deleteImage)
		})

		r.Get("/connections", h.listConnections)
	})

	r.Get("/ws/chat/{clientID}", h.HandleChat)
	r.Get("/ws/images", h.HandleImages)

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return r
}
