package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/insights"
)

type fakeLoader struct {
	dash  dashboard.Dashboard
	err   error
	specs []dashboard.FilterSpec
}

func (l *fakeLoader) GetDashboard(ctx context.Context, f dashboard.FilterSpec) (dashboard.Dashboard, error) {
	l.specs = append(l.specs, f)
	return l.dash, l.err
}

type fakeRefresher struct {
	err   error
	calls int
}

func (r *fakeRefresher) Refresh(ctx context.Context, f dashboard.FilterSpec, dash dashboard.Dashboard) (insights.Narrative, error) {
	r.calls++
	return insights.Narrative{Summary: "warm"}, r.err
}

func TestInsightsWarmupRefreshesUnfilteredScope(t *testing.T) {
	loader := &fakeLoader{dash: dashboard.Dashboard{KPI: dashboard.KPISummary{TotalRevenue: 100}}}
	refresher := &fakeRefresher{}
	job := NewInsightsWarmupJob(loader, refresher, nil)

	task, err := NewInsightsWarmupTask(InsightsWarmupPayload{Scope: "hourly"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, loader.specs, 1)
	require.True(t, loader.specs[0].IsZero(), "warmup always targets the unfiltered scope")
	require.Equal(t, 1, refresher.calls)
}

func TestInsightsWarmupSkipsRetryOnBadPayload(t *testing.T) {
	job := NewInsightsWarmupJob(&fakeLoader{}, &fakeRefresher{}, nil)

	task := asynq.NewTask(TaskInsightsWarmup, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInsightsWarmupPropagatesDashboardError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("store down")}
	refresher := &fakeRefresher{}
	job := NewInsightsWarmupJob(loader, refresher, nil)

	task, err := NewInsightsWarmupTask(InsightsWarmupPayload{})
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
	require.Zero(t, refresher.calls, "narrative is not refreshed when the dashboard fails")
}

func TestInsightsWarmupPropagatesRefreshError(t *testing.T) {
	loader := &fakeLoader{}
	refresher := &fakeRefresher{err: insights.ErrUnavailable}
	job := NewInsightsWarmupJob(loader, refresher, nil)

	task, err := NewInsightsWarmupTask(InsightsWarmupPayload{})
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), insights.ErrUnavailable)
}

func TestInsightsWarmupUnconfiguredHandler(t *testing.T) {
	job := &InsightsWarmupJob{}

	task, err := NewInsightsWarmupTask(InsightsWarmupPayload{})
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}
