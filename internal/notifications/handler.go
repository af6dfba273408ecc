package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/httpx"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/rbac"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

// Handler manages notification endpoints. Users only ever see their own
// notifications; there is no cross-user listing.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermNotificationsView))
		r.Get("/", h.list)
		r.Get("/unread_count", h.unreadCount)
		r.Post("/{id}/read", h.markRead)
		r.Post("/read_all", h.markAllRead)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profile, _ := authz.ProfileFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.service.ListForUser(r.Context(), profile.ID, limit, offset)
	if err != nil {
		h.logger.Error("list notifications failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	profile, _ := authz.ProfileFromContext(r.Context())
	count, err := h.service.UnreadCount(r.Context(), profile.ID)
	if err != nil {
		h.logger.Error("unread count failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	profile, _ := authz.ProfileFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid notification id")
		return
	}
	if err := h.service.MarkRead(r.Context(), profile.ID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "notification not found")
			return
		}
		h.logger.Error("mark notification read failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	profile, _ := authz.ProfileFromContext(r.Context())
	if err := h.service.MarkAllRead(r.Context(), profile.ID); err != nil {
		h.logger.Error("mark all notifications read failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}
