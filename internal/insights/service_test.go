package insights

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/renewtrack/renewtrack/internal/dashboard"
)

// fakeGenerator counts calls and returns a canned narrative or error.
type fakeGenerator struct {
	narrative Narrative
	err       error
	calls     int
	lastReq   GenerateRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (Narrative, error) {
	g.calls++
	g.lastReq = req
	return g.narrative, g.err
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func sampleNarrative() Narrative {
	return Narrative{
		Summary:         "Revenue held steady while margin compressed.",
		KeyFindings:     []string{"Laptop cost ratios crossed 80%."},
		Recommendations: []string{"Revisit vendor pricing on high-ratio SKUs."},
		GeneratedAt:     time.Date(2025, time.June, 30, 10, 0, 0, 0, time.UTC),
	}
}

func sampleDashboard() dashboard.Dashboard {
	return dashboard.Dashboard{
		KPI: dashboard.KPISummary{TotalRevenue: 10000, TotalProfit: 4000, ProfitMargin: 40},
		ChurnRisks: []dashboard.ChurnScore{
			{Customer: "Acme Corp", AtRisk: true},
			{Customer: "Globex", AtRisk: false},
		},
	}
}

func TestNarrativeCachesOnMiss(t *testing.T) {
	gen := &fakeGenerator{narrative: sampleNarrative()}
	svc := NewService(gen, testRedis(t), time.Hour, nil)
	spec := dashboard.FilterSpec{Category: []string{"Laptop"}}

	first, err := svc.Narrative(context.Background(), spec, sampleDashboard())
	require.NoError(t, err)
	require.Equal(t, sampleNarrative().Summary, first.Summary)
	require.Equal(t, 1, gen.calls)

	second, err := svc.Narrative(context.Background(), spec, sampleDashboard())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, gen.calls, "second read must come from the cache")
}

func TestNarrativeCacheKeyedByFilter(t *testing.T) {
	gen := &fakeGenerator{narrative: sampleNarrative()}
	svc := NewService(gen, testRedis(t), time.Hour, nil)

	_, err := svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.NoError(t, err)
	_, err = svc.Narrative(context.Background(), dashboard.FilterSpec{Category: []string{"Phone"}}, sampleDashboard())
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls, "different scopes must not share a cache entry")
}

func TestNarrativeWithoutCacheCallsGeneratorEveryTime(t *testing.T) {
	gen := &fakeGenerator{narrative: sampleNarrative()}
	svc := NewService(gen, nil, time.Hour, nil)

	_, err := svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.NoError(t, err)
	_, err = svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls)
}

func TestNarrativeGeneratorFailureNotCached(t *testing.T) {
	gen := &fakeGenerator{err: ErrUnavailable}
	cache := testRedis(t)
	svc := NewService(gen, cache, time.Hour, nil)

	_, err := svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.ErrorIs(t, err, ErrUnavailable)

	keys, err := cache.Keys(context.Background(), "insights:*").Result()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestNarrativeNoGeneratorConfigured(t *testing.T) {
	svc := NewService(nil, nil, time.Hour, nil)

	_, err := svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRefreshOverwritesCache(t *testing.T) {
	gen := &fakeGenerator{narrative: sampleNarrative()}
	cache := testRedis(t)
	svc := NewService(gen, cache, time.Hour, nil)
	spec := dashboard.FilterSpec{}

	_, err := svc.Narrative(context.Background(), spec, sampleDashboard())
	require.NoError(t, err)

	updated := sampleNarrative()
	updated.Summary = "Margin recovered in June."
	gen.narrative = updated

	refreshed, err := svc.Refresh(context.Background(), spec, sampleDashboard())
	require.NoError(t, err)
	require.Equal(t, "Margin recovered in June.", refreshed.Summary)

	raw, err := cache.Get(context.Background(), "insights:narrative:all").Bytes()
	require.NoError(t, err)
	var cached Narrative
	require.NoError(t, json.Unmarshal(raw, &cached))
	require.Equal(t, "Margin recovered in June.", cached.Summary)
}

func TestGeneratorPayloadSummarizesDashboard(t *testing.T) {
	gen := &fakeGenerator{narrative: sampleNarrative()}
	svc := NewService(gen, nil, time.Hour, nil)

	_, err := svc.Narrative(context.Background(), dashboard.FilterSpec{}, sampleDashboard())
	require.NoError(t, err)

	require.Equal(t, narrativeContext, gen.lastReq.Context)
	payload, ok := gen.lastReq.Data.(summaryPayload)
	require.True(t, ok)
	require.Equal(t, 10000.0, payload.KPI.TotalRevenue)
	require.Equal(t, 1, payload.AtRiskCount)
}
