package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/auth"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/departments"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/notifications"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/observability"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/rbac"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/roles"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/tasks"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/users"
	"github.com/aysenur-23/revium-erp-suite-sub006/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Profiles       ProfileLoader

	AuthHandler          *auth.Handler
	TasksHandler         *tasks.Handler
	UsersHandler         *users.Handler
	DepartmentsHandler   *departments.Handler
	RolesHandler         *roles.Handler
	NotificationsHandler *notifications.Handler
	PermissionsHandler   *rbac.PermissionsHandler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Revium defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Profiles:       params.Profiles,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		if params.TasksHandler != nil {
			r.Route("/tasks", params.TasksHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.DepartmentsHandler != nil {
			r.Route("/departments", params.DepartmentsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
