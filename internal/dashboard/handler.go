package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/stocklens/stocklens/internal/platform/httpx"
	"github.com/stocklens/stocklens/internal/shared"
)

// Handler serves the dashboard endpoints. Concurrent requests for the same
// tenant's charts collapse into a single build.
type Handler struct {
	logger  *slog.Logger
	service *Service
	group   singleflight.Group
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the dashboard routes to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/charts", h.Charts)
	r.Get("/summary", h.Summary)
}

func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	// Detached from the request so a disconnecting leader cannot fail the
	// followers sharing this flight.
	ctx := context.WithoutCancel(r.Context())
	key := "charts:" + strconv.FormatInt(principal.OrganizationID, 10)
	result, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.service.Charts(ctx, principal)
	})
	if err != nil {
		h.logger.Error("build dashboard charts failed", slog.Any("error", err), slog.Int64("org", principal.OrganizationID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	key := "summary:" + strconv.FormatInt(principal.OrganizationID, 10)
	result, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.service.Summary(ctx, principal)
	})
	if err != nil {
		h.logger.Error("build dashboard summary failed", slog.Any("error", err), slog.Int64("org", principal.OrganizationID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
