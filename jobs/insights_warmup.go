package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/insights"
)

// DashboardLoader recomputes the dashboard for a scope.
type DashboardLoader interface {
	GetDashboard(ctx context.Context, f dashboard.FilterSpec) (dashboard.Dashboard, error)
}

// NarrativeRefresher regenerates and re-caches the narrative for a scope.
type NarrativeRefresher interface {
	Refresh(ctx context.Context, f dashboard.FilterSpec, dash dashboard.Dashboard) (insights.Narrative, error)
}

// InsightsWarmupJob pre-generates the narrative for the unfiltered dashboard
// so interactive requests rarely wait on the external generator.
type InsightsWarmupJob struct {
	Dashboard DashboardLoader
	Insights  NarrativeRefresher
	Logger    *slog.Logger
}

// NewInsightsWarmupJob wires dependencies for the warmup handler.
func NewInsightsWarmupJob(dash DashboardLoader, ins NarrativeRefresher, logger *slog.Logger) *InsightsWarmupJob {
	return &InsightsWarmupJob{Dashboard: dash, Insights: ins, Logger: logger}
}

// Handle processes TaskInsightsWarmup tasks.
func (j *InsightsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil || j.Insights == nil {
		return errors.New("insights warmup: handler not configured")
	}
	var payload InsightsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	// Only the unfiltered scope is warmed; filtered scopes are generated on
	// demand and cached by the insights service.
	spec := dashboard.FilterSpec{}

	dash, err := j.Dashboard.GetDashboard(ctx, spec)
	if err != nil {
		j.log().Error("warmup dashboard", slog.Any("error", err))
		return err
	}
	if _, err := j.Insights.Refresh(ctx, spec, dash); err != nil {
		j.log().Error("warmup narrative", slog.Any("error", err))
		return err
	}
	j.log().Info("insights warmup complete", slog.String("scope", payload.Scope))
	return nil
}

func (j *InsightsWarmupJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
