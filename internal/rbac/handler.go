package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/httpx"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

// PermissionsHandler reports the current user's effective capabilities so
// the UI can derive what to show without re-checking on every widget.
type PermissionsHandler struct {
	logger   *slog.Logger
	resolver *authz.Resolver
	rbac     Middleware
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, resolver *authz.Resolver, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, resolver: resolver, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.listCapabilities)
	})
}

type capability struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

func (h *PermissionsHandler) listCapabilities(w http.ResponseWriter, r *http.Request) {
	profile, _ := authz.ProfileFromContext(r.Context())

	scopes := shared.CoreScopes()
	out := make([]capability, 0, len(scopes))
	for _, scope := range scopes {
		resource, action, ok := ParseScope(scope)
		if !ok {
			continue
		}
		allowed, err := h.resolver.Can(r.Context(), profile, resource, action)
		if err != nil {
			h.logger.Error("list capabilities", slog.String("scope", scope), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Permission Check Failed", "capabilities are temporarily unavailable")
			return
		}
		out = append(out, capability{Name: scope, Allowed: allowed})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"capabilities": out})
}
