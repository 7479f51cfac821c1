package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/handlers"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	Organizations *handlers.OrganizationsHandler
	Projects      *handlers.ProjectsHandler
	Tasks         *handlers.TasksHandler
	Dashboard     *handlers.DashboardHandler
	Health        *handlers.HealthHandler

	RequirePrincipal func(http.Handler) http.Handler // bearer token -> principal in context
	Log              zerolog.Logger
	Secure           func(http.Handler) http.Handler
	CORS             func(http.Handler) http.Handler
	IPRateLimit      func(http.Handler) http.Handler
	UserRateLimit    func(http.Handler) http.Handler
	Metrics          bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Everything below authenticates and resolves the caller's principal.
	r.Group(func(r chi.Router) {
		r.Use(cfg.RequirePrincipal)
		if cfg.UserRateLimit != nil {
			r.Use(cfg.UserRateLimit)
		}
		r.Use(chimid.AllowContentType("application/json"))

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", cfg.Organizations.Create)
			r.Get("/{orgID}", cfg.Organizations.Get)
			r.Post("/{orgID}/invite-code", cfg.Organizations.ReissueInviteCode)
			r.Get("/{orgID}/members", cfg.Organizations.ListMembers)
			r.Patch("/{orgID}/members/{userID}", cfg.Organizations.ChangeMemberRole)
			r.Delete("/{orgID}/members/{userID}", cfg.Organizations.RemoveMember)
			if cfg.Dashboard != nil {
				r.Get("/{orgID}/dashboard", cfg.Dashboard.Get)
			}
		})

		r.Post("/invites/redeem", cfg.Organizations.RedeemInvite)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", cfg.Projects.Create)
			r.Get("/", cfg.Projects.List)
			r.Get("/{projectID}", cfg.Projects.Get)
			r.Patch("/{projectID}", cfg.Projects.Update)
			r.Delete("/{projectID}", cfg.Projects.Delete)
			r.Post("/{projectID}/members", cfg.Projects.AddMember)
			r.Delete("/{projectID}/members/{userID}", cfg.Projects.RemoveMember)
			r.Get("/{projectID}/tasks", cfg.Tasks.ListByProject)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", cfg.Tasks.Create)
			r.Get("/assigned", cfg.Tasks.ListAssigned)
			r.Get("/{taskID}", cfg.Tasks.Get)
			r.Patch("/{taskID}", cfg.Tasks.Update)
			r.Delete("/{taskID}", cfg.Tasks.Delete)
		})
	})

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
