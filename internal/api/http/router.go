package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/catalog"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

type Deps struct {
	Store            catalog.Store
	Auth             *auth.AuthService
	Logger           *zap.Logger
	Registry         *prometheus.Registry
	CORSOrigins      []string
	RequestTimeout   time.Duration
	EnableLocalLogin bool
}

// NewRouter mounts the quiz, results and progress API.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"http://localhost:3000"}
	}
	metrics := NewMetrics(d.Registry)
	v := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Logger), middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.EnableLocalLogin {
		r.Post("/auth/login", LoginHandler(d.Auth))
	}

	r.Route("/api", func(ar chi.Router) {
		ar.With(auth.OptionalJWT(d.Auth)).Get("/quizzes/{type}/{slug}", GetQuizHandler(d.Store))

		ar.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(d.Auth))

			pr.With(rbac.Require(rbac.PermQuizPublish)).
				Put("/quizzes/{type}/{slug}", PutQuizHandler(d.Store, v))
			pr.With(rbac.Require(rbac.PermQuizComplete)).
				Post("/quizzes/{type}/{slug}/complete", CompleteQuizHandler(d.Store, v))
			pr.With(rbac.Require(rbac.PermResultsViewOwn)).
				Get("/quizzes/{type}/{slug}/results", GetResultsHandler(d.Store))

			pr.With(rbac.Require(rbac.PermProgressOwn)).
				Get("/progress/{courseID}", GetProgressHandler(d.Store))
			pr.With(rbac.Require(rbac.PermProgressOwn)).
				Post("/progress/{courseID}", UpdateProgressHandler(d.Store, v))
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
