package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/renewtrack/renewtrack/internal/dashboard"
)

const narrativeContext = "refurbished-electronics inventory dashboard"

// Service generates narratives from dashboard metrics and caches them in
// Redis. Narratives are the only cached artifact in the system: the
// aggregations they summarize are recomputed on every request.
type Service struct {
	generator Generator
	cache     *redis.Client
	ttl       time.Duration
	logger    *slog.Logger
}

// NewService wires the generator with an optional Redis cache. A nil cache
// degrades to calling the generator every time.
func NewService(generator Generator, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{generator: generator, cache: cache, ttl: ttl, logger: logger}
}

// summaryPayload is the condensed view of a dashboard sent to the generator.
type summaryPayload struct {
	KPI           dashboard.KPISummary          `json:"kpi"`
	Categories    []dashboard.CategoryBreakdown `json:"categories"`
	TopCustomers  []dashboard.TopPerformer      `json:"topCustomers"`
	Waterfall     dashboard.Waterfall           `json:"waterfall"`
	Aging         []dashboard.AgingBucket       `json:"aging"`
	Concentration dashboard.Concentration       `json:"concentration"`
	AtRiskCount   int                           `json:"atRiskCustomers"`
}

func buildPayload(dash dashboard.Dashboard) summaryPayload {
	atRisk := 0
	for _, c := range dash.ChurnRisks {
		if c.AtRisk {
			atRisk++
		}
	}
	return summaryPayload{
		KPI:           dash.KPI,
		Categories:    dash.Categories,
		TopCustomers:  dash.TopCustomers,
		Waterfall:     dash.Waterfall,
		Aging:         dash.Aging,
		Concentration: dash.Concentration,
		AtRiskCount:   atRisk,
	}
}

func cacheKey(f dashboard.FilterSpec) string {
	return "insights:narrative:" + f.CacheKey()
}

// Narrative returns the cached narrative for the scope, generating and
// storing it on a miss.
func (s *Service) Narrative(ctx context.Context, f dashboard.FilterSpec, dash dashboard.Dashboard) (Narrative, error) {
	if s.generator == nil {
		return Narrative{}, fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}

	key := cacheKey(f)
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached Narrative
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil && s.logger != nil {
			s.logger.Warn("insights cache read", slog.Any("error", err))
		}
	}

	return s.Refresh(ctx, f, dash)
}

// Refresh bypasses the cache read, calls the generator, and stores the result.
// The warmup job uses it to keep the unfiltered narrative hot.
func (s *Service) Refresh(ctx context.Context, f dashboard.FilterSpec, dash dashboard.Dashboard) (Narrative, error) {
	if s.generator == nil {
		return Narrative{}, fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}

	narrative, err := s.generator.Generate(ctx, GenerateRequest{
		Context: narrativeContext,
		Data:    buildPayload(dash),
	})
	if err != nil {
		return Narrative{}, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(narrative)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey(f), raw, s.ttl).Err(); err != nil && s.logger != nil {
				s.logger.Warn("insights cache write", slog.Any("error", err))
			}
		}
	}
	return narrative, nil
}
