package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/garage/internal/http/auth"
	"github.com/MrJamesThe3rd/garage/internal/http/conversion"
	"github.com/MrJamesThe3rd/garage/internal/http/estimate"
	"github.com/MrJamesThe3rd/garage/internal/http/importcsv"
	"github.com/MrJamesThe3rd/garage/internal/http/job"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Timeout        time.Duration
}

func New(
	opts Options,
	estimatesV1 *estimate.Handler,
	conversionsV1 *conversion.Handler,
	importV1 *importcsv.Handler,
	jobsV1 *job.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.JWTSecret))

		r.Route("/estimates", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				estimatesV1.Routes(r)
				conversionsV1.Routes(r)
			})

			importV1.Routes(r)
		})

		r.Route("/jobs", jobsV1.Routes)
	})

	return router
}
