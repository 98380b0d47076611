package service_test

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/cache"
	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockFinanceStore struct {
	categories    []domain.FinanceCategory
	spending      []domain.SpendingRecord
	categoriesErr error
	spendingErr   error
	listCalls     int
}

func (m *mockFinanceStore) ListCategories(_ context.Context, _ string) ([]domain.FinanceCategory, error) {
	m.listCalls++
	return m.categories, m.categoriesErr
}

func (m *mockFinanceStore) CreateCategory(_ context.Context, cat *domain.FinanceCategory) (*domain.FinanceCategory, error) {
	return cat, nil
}

func (m *mockFinanceStore) ListSpending(_ context.Context, _ string) ([]domain.SpendingRecord, error) {
	return m.spending, m.spendingErr
}

func (m *mockFinanceStore) CreateSpending(_ context.Context, rec *domain.SpendingRecord) (*domain.SpendingRecord, error) {
	return rec, nil
}

// --- Aggregate ---

func TestAggregate_SplitsTotalsAcrossCategories(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "30", Category: "Food"},
		{Name: "dinner", Amount: "70", Category: "Food"},
		{Name: "rent", Amount: "50", Category: "Rent"},
	}
	categories := []domain.FinanceCategory{
		{Name: "Food", Color: "#FF6B6B"},
		{Name: "Rent", Color: "#4ECDC4"},
	}

	summary := service.Aggregate(spending, categories)

	if summary.Total != 150 {
		t.Errorf("expected total 150, got %f", summary.Total)
	}
	if len(summary.PerCategory) != 2 {
		t.Fatalf("expected 2 category aggregates, got %d", len(summary.PerCategory))
	}

	food := summary.PerCategory[0]
	if food.Category != "Food" || food.TotalAmount != "100.00" || food.Percentage != "66.67" {
		t.Errorf("unexpected Food aggregate: %+v", food)
	}
	rent := summary.PerCategory[1]
	if rent.Category != "Rent" || rent.TotalAmount != "50.00" || rent.Percentage != "33.33" {
		t.Errorf("unexpected Rent aggregate: %+v", rent)
	}

	if summary.Dominant.Category != "Food" || summary.Dominant.Percentage != "66.67" {
		t.Errorf("unexpected dominant: %+v", summary.Dominant)
	}
	if !food.Focused || rent.Focused {
		t.Error("expected only the dominant category to be focused")
	}

	// Percentages must sum to ~100 when every record matches a category.
	var sum float64
	for _, agg := range summary.PerCategory {
		pct, _ := strconv.ParseFloat(agg.Percentage, 64)
		sum += pct
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("expected percentages to sum to 100, got %f", sum)
	}
}

func TestAggregate_EmptySpendingYieldsSentinel(t *testing.T) {
	summary := service.Aggregate(nil, []domain.FinanceCategory{{Name: "Food"}})

	if summary.Total != 0 {
		t.Errorf("expected total 0, got %f", summary.Total)
	}
	if len(summary.PerCategory) != 0 {
		t.Errorf("expected no category aggregates, got %d", len(summary.PerCategory))
	}
	if summary.Dominant.Category != "None" || summary.Dominant.Percentage != "0.00" {
		t.Errorf("unexpected sentinel dominant: %+v", summary.Dominant)
	}
}

func TestAggregate_UnmatchedSpendingCountsInGrandTotalOnly(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "60", Category: "Food"},
		{Name: "mystery", Amount: "40", Category: "Deleted"},
	}
	categories := []domain.FinanceCategory{{Name: "Food", Color: "#FF6B6B"}}

	summary := service.Aggregate(spending, categories)

	if summary.Total != 100 {
		t.Errorf("expected grand total 100, got %f", summary.Total)
	}
	if len(summary.PerCategory) != 1 {
		t.Fatalf("expected 1 category aggregate, got %d", len(summary.PerCategory))
	}
	if summary.PerCategory[0].Percentage != "60.00" {
		t.Errorf("expected Food at 60.00%%, got %s", summary.PerCategory[0].Percentage)
	}
}

func TestAggregate_UnparsableAmountSkipped(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "50", Category: "Food"},
		{Name: "broken", Amount: "fifty", Category: "Food"},
	}
	categories := []domain.FinanceCategory{{Name: "Food"}}

	summary := service.Aggregate(spending, categories)
	if summary.Total != 50 {
		t.Errorf("expected total 50, got %f", summary.Total)
	}
}

func TestAggregate_ZeroSpendCategoryExcluded(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "50", Category: "Food"},
	}
	categories := []domain.FinanceCategory{
		{Name: "Food", Color: "#FF6B6B"},
		{Name: "Travel", Color: "#4ECDC4"},
	}

	summary := service.Aggregate(spending, categories)
	if len(summary.PerCategory) != 1 {
		t.Fatalf("expected only Food in the rollup, got %d entries", len(summary.PerCategory))
	}
	if summary.PerCategory[0].Category != "Food" {
		t.Errorf("expected 'Food', got '%s'", summary.PerCategory[0].Category)
	}
}

func TestAggregate_MissingColorFallsBack(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "50", Category: "Food"},
	}
	categories := []domain.FinanceCategory{{Name: "Food"}}

	summary := service.Aggregate(spending, categories)
	if summary.PerCategory[0].Color != service.FallbackColor {
		t.Errorf("expected fallback color, got '%s'", summary.PerCategory[0].Color)
	}
}

func TestAggregate_ChartSeriesMirrorsPerCategory(t *testing.T) {
	spending := []domain.SpendingRecord{
		{Name: "lunch", Amount: "75", Category: "Food"},
		{Name: "bus", Amount: "25", Category: "Transport"},
	}
	categories := []domain.FinanceCategory{
		{Name: "Food", Color: "#FF6B6B"},
		{Name: "Transport", Color: "#4ECDC4"},
	}

	summary := service.Aggregate(spending, categories)
	if len(summary.ChartSeries) != 2 {
		t.Fatalf("expected 2 chart slices, got %d", len(summary.ChartSeries))
	}
	first := summary.ChartSeries[0]
	if first.Value != 75 || first.Label != "75.00%" || first.Color != "#FF6B6B" || !first.Focused {
		t.Errorf("unexpected first chart slice: %+v", first)
	}
}

// --- FinanceService ---

func TestKnownCategories_CachesPerUser(t *testing.T) {
	store := &mockFinanceStore{
		categories: []domain.FinanceCategory{{ID: "cat-1", Name: "Food"}},
	}
	svc := service.NewFinanceService(store, cache.New[[]domain.FinanceCategory](5*time.Minute), nil, observability.NewMetrics(), zap.NewNop())

	for i := 0; i < 3; i++ {
		cats, err := svc.KnownCategories(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cats) != 1 {
			t.Fatalf("expected 1 category, got %d", len(cats))
		}
	}

	if store.listCalls != 1 {
		t.Errorf("expected 1 store call after caching, got %d", store.listCalls)
	}
}

func TestKnownCategories_InvalidateForcesRefetch(t *testing.T) {
	store := &mockFinanceStore{}
	svc := service.NewFinanceService(store, cache.New[[]domain.FinanceCategory](5*time.Minute), nil, observability.NewMetrics(), zap.NewNop())

	if _, err := svc.KnownCategories(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	svc.InvalidateCategories("user-1")
	if _, err := svc.KnownCategories(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if store.listCalls != 2 {
		t.Errorf("expected 2 store calls after invalidation, got %d", store.listCalls)
	}
}

func TestSummary_StoreErrorPropagates(t *testing.T) {
	store := &mockFinanceStore{spendingErr: errors.New("connection refused")}
	svc := service.NewFinanceService(store, cache.New[[]domain.FinanceCategory](5*time.Minute), nil, observability.NewMetrics(), zap.NewNop())

	if _, err := svc.Summary(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
