package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var financeTracer = otel.Tracer("service/finance")

// Aggregate computes the display-ready finance rollup from the two input
// sets. Fully deterministic, no hidden state: recomputed from scratch
// whenever spending or categories change.
//
// The grand total sums every parseable amount. Per-category totals only
// include spending whose category field matches a category name exactly,
// so unmatched spending widens the gap between the grand total and the
// sum of category percentages.
func Aggregate(spending []domain.SpendingRecord, categories []domain.FinanceCategory) domain.FinanceSummary {
	summary := domain.FinanceSummary{
		PerCategory: []domain.CategoryAggregate{},
		Dominant:    domain.DominantCategory{Category: "None", Percentage: "0.00"},
		ChartSeries: []domain.ChartSlice{},
	}

	byCategory := make(map[string]float64)
	var total float64
	for _, rec := range spending {
		amount, err := strconv.ParseFloat(rec.Amount, 64)
		if err != nil {
			continue
		}
		total += amount
		byCategory[rec.Category] += amount
	}
	summary.Total = total

	if total == 0 {
		return summary
	}

	// Categories iterate in input order; dominant ties break on the first
	// one encountered.
	dominantIdx := -1
	var dominantPct float64
	for _, cat := range categories {
		catTotal, ok := byCategory[cat.Name]
		if !ok || catTotal == 0 {
			continue
		}

		pct := catTotal / total * 100
		color := cat.Color
		if color == "" {
			color = FallbackColor
		}

		summary.PerCategory = append(summary.PerCategory, domain.CategoryAggregate{
			Category:    cat.Name,
			TotalAmount: fmt.Sprintf("%.2f", catTotal),
			Percentage:  fmt.Sprintf("%.2f", pct),
			Color:       color,
		})

		if pct > dominantPct {
			dominantPct = pct
			dominantIdx = len(summary.PerCategory) - 1
		}
	}

	if dominantIdx >= 0 {
		summary.PerCategory[dominantIdx].Focused = true
		summary.Dominant = domain.DominantCategory{
			Category:   summary.PerCategory[dominantIdx].Category,
			Percentage: summary.PerCategory[dominantIdx].Percentage,
		}
	}

	for _, agg := range summary.PerCategory {
		pct, _ := strconv.ParseFloat(agg.Percentage, 64)
		summary.ChartSeries = append(summary.ChartSeries, domain.ChartSlice{
			Value:   pct,
			Color:   agg.Color,
			Label:   agg.Percentage + "%",
			Focused: agg.Focused,
		})
	}

	return summary
}

// FinanceService serves finance summaries and the known-category set. It
// caches categories per user and treats realtime events on the finance
// collections as invalidate-and-refetch signals, never as patches.
type FinanceService struct {
	store       port.FinanceStore
	cache       port.Cache[[]domain.FinanceCategory]
	metrics     metricsRecorder
	logger      *zap.Logger
	unsubscribe func()
}

// metricsRecorder is the slice of observability.Metrics the services use.
type metricsRecorder interface {
	IncrCacheHit(cache string)
	IncrCacheMiss(cache string)
	IncrExternalError(service string)
	IncrRecord(kind, status string)
	IncrUtterance(status string)
	RecordRequestDuration(operation string, d time.Duration)
}

// NewFinanceService creates the finance service and starts consuming the
// realtime feed for the category and spending collections.
// watchCollections defaults to "finance_categories" and "spending".
func NewFinanceService(store port.FinanceStore, cache port.Cache[[]domain.FinanceCategory], bus port.EventBus, metrics metricsRecorder, logger *zap.Logger, watchCollections ...string) *FinanceService {
	s := &FinanceService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}

	if bus != nil {
		if len(watchCollections) == 0 {
			watchCollections = []string{"finance_categories", "spending"}
		}
		events, unsubscribe := bus.Subscribe(watchCollections...)
		s.unsubscribe = unsubscribe
		go s.consumeInvalidations(events)
	}

	return s
}

// consumeInvalidations drops the whole category cache on any finance
// collection event. Invalidate and refetch, never diff.
func (s *FinanceService) consumeInvalidations(events <-chan domain.RealtimeEvent) {
	for ev := range events {
		s.logger.Debug("finance: invalidating category cache",
			zap.String("collection", ev.Collection),
			zap.Strings("events", ev.Events),
		)
		s.cache.Purge()
	}
}

// Close stops consuming the realtime feed.
func (s *FinanceService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// KnownCategories returns the user's finance categories, cached per user.
func (s *FinanceService) KnownCategories(ctx context.Context, userID string) ([]domain.FinanceCategory, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.KnownCategories")
	defer span.End()

	cacheKey := "categories:" + userID
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("categories")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("categories")

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("categories")
		return nil, fmt.Errorf("category list: %w", err)
	}
	s.cache.Set(cacheKey, categories)
	return categories, nil
}

// InvalidateCategories drops the cached category set for one user.
func (s *FinanceService) InvalidateCategories(userID string) {
	s.cache.Delete("categories:" + userID)
}

// Summary fetches the user's spending and categories and aggregates them.
func (s *FinanceService) Summary(ctx context.Context, userID string) (*domain.FinanceSummary, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	spending, err := s.store.ListSpending(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("spending")
		return nil, fmt.Errorf("spending list: %w", err)
	}

	categories, err := s.KnownCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := Aggregate(spending, categories)
	return &summary, nil
}
