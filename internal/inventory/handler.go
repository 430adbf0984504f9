package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/bulk", h.handleBulk)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))

	result, err := h.service.List(r.Context(), spec, page, perPage)
	if err != nil {
		h.logger.Error("list inventory", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type bulkRequest struct {
	Records []BulkRecord `json:"records"`
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}

	result, err := h.service.BulkInsert(r.Context(), req.Records)
	if err != nil {
		h.logger.Error("bulk insert", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
