// Package dashboardhttp exposes the dashboard aggregations over JSON.
package dashboardhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/insights"
	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// InsightProvider generates the optional narrative block. Failures are
// additive: the numeric dashboard is served without insights.
type InsightProvider interface {
	Narrative(ctx context.Context, f dashboard.FilterSpec, dash dashboard.Dashboard) (insights.Narrative, error)
}

// Handler serves the dashboard endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *dashboard.Service
	insights InsightProvider
}

// NewHandler wires the dashboard service. insights may be nil when no
// generator is configured.
func NewHandler(logger *slog.Logger, service *dashboard.Service, ins InsightProvider) *Handler {
	return &Handler{logger: logger, service: service, insights: ins}
}

type dashboardResponse struct {
	dashboard.Dashboard
	Insights *insights.Narrative `json:"insights,omitempty"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	dash, err := h.service.GetDashboard(r.Context(), spec)
	if err != nil {
		h.logError("dashboard", err)
		httpx.RespondError(w, err)
		return
	}

	resp := dashboardResponse{Dashboard: dash}
	if h.insights != nil {
		narrative, err := h.insights.Narrative(r.Context(), spec, dash)
		if err != nil {
			h.logWarn("insights omitted", err)
		} else {
			resp.Insights = &narrative
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWaterfall(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	waterfall, err := h.service.GetWaterfall(r.Context(), spec)
	if err != nil {
		h.logError("waterfall", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, waterfall)
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	buckets, err := h.service.GetAging(r.Context(), spec)
	if err != nil {
		h.logError("aging", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	points, forecast, err := h.service.GetTrends(r.Context(), spec)
	if err != nil {
		h.logError("trends", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trend": points, "forecast": forecast})
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customers, concentration, err := h.service.GetTopCustomers(r.Context(), spec)
	if err != nil {
		h.logError("customers", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customers":     customers,
		"concentration": concentration,
	})
}

func (h *Handler) handleVendors(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	vendors, err := h.service.GetTopVendors(r.Context(), spec)
	if err != nil {
		h.logError("vendors", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vendors": vendors})
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	products, bottlenecks, err := h.service.GetTopProducts(r.Context(), spec)
	if err != nil {
		h.logError("products", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":        products,
		"costBottlenecks": bottlenecks,
	})
}

func (h *Handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Configured", "no insight generator configured")
		return
	}
	spec, err := dashboard.ParseFilterSpec(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dash, err := h.service.GetDashboard(r.Context(), spec)
	if err != nil {
		h.logError("insights dashboard", err)
		httpx.RespondError(w, err)
		return
	}
	narrative, err := h.insights.Narrative(r.Context(), spec, dash)
	if err != nil {
		h.logWarn("insights", err)
		httpx.Problem(w, http.StatusBadGateway, "Insight Generation Failed", "the narrative service is unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, narrative)
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

func (h *Handler) logWarn(op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
}
