package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/http/handlers"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/middleware"
)

type RouterDependencies struct {
	API          *handlers.API
	Logger       zerolog.Logger
	APIKey       string
	CORSOrigins  []string
	GeneralLimit *middleware.RateLimiter
	DeployLimit  *middleware.RateLimiter
	MaxBodyBytes int64
}

// SplitOrigins turns a comma separated CORS_ORIGIN value into a list.
func SplitOrigins(value string) []string {
	return strings.Split(value, ",")
}

func NewRouter(deps RouterDependencies) http.Handler {
	generalLimit := deps.GeneralLimit
	if generalLimit == nil {
		generalLimit = middleware.PerSecond(0, 0)
	}
	deployLimit := deps.DeployLimit
	if deployLimit == nil {
		deployLimit = middleware.PerMinute(0)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		middleware.Trace(deps.Logger),
		chimiddleware.Recoverer,
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: deps.CORSOrigins}),
		middleware.BodyLimit(deps.MaxBodyBytes),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", deps.API.Health)

		r.Group(func(r chi.Router) {
			r.Use(generalLimit.Middleware)
			r.Use(middleware.Auth(deps.APIKey))

			r.Post("/brief", deps.API.SubmitBrief)
			r.Get("/brief/{briefId}", deps.API.GetBrief)

			r.With(deployLimit.Middleware).Post("/deploy", deps.API.Deploy)

			r.Get("/status", deps.API.ListJobs)
			r.Get("/status/{jobId}", deps.API.JobStatus)
			r.Get("/status/{jobId}/deployment", deps.API.DeploymentStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
