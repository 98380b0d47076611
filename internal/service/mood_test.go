package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockMoodStore struct {
	records []domain.MoodRecord
	listErr error
}

func (m *mockMoodStore) CreateMood(_ context.Context, rec *domain.MoodRecord) (*domain.MoodRecord, error) {
	return rec, nil
}

func (m *mockMoodStore) ListMoods(_ context.Context, _ string, _, _ time.Time) ([]domain.MoodRecord, error) {
	return m.records, m.listErr
}

// --- Tests ---

func TestMoodCreate_RejectsUnknownLevel(t *testing.T) {
	svc := service.NewMoodService(&mockMoodStore{}, zap.NewNop())

	_, err := svc.Create(context.Background(), &domain.MoodRecord{MoodType: "ecstatic"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMoodCreate_DefaultsDatetime(t *testing.T) {
	svc := service.NewMoodService(&mockMoodStore{}, zap.NewNop())

	created, err := svc.Create(context.Background(), &domain.MoodRecord{MoodType: domain.MoodGood})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Datetime.IsZero() {
		t.Error("expected datetime to be defaulted")
	}
}

func TestWeeklySeries_SevenDaysOldestFirst(t *testing.T) {
	today := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := service.NewMoodService(&mockMoodStore{}, zap.NewNop())

	series, err := svc.WeeklySeries(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(series) != 7 {
		t.Fatalf("expected 7 days, got %d", len(series))
	}
	if series[0].Date != "2026-03-09" {
		t.Errorf("expected first day 2026-03-09, got %s", series[0].Date)
	}
	if series[6].Date != "2026-03-15" {
		t.Errorf("expected last day 2026-03-15, got %s", series[6].Date)
	}
	for _, day := range series {
		if day.Mood != nil {
			t.Errorf("expected empty day %s, got a mood", day.Date)
		}
	}
}

func TestWeeklySeries_LatestRecordWinsPerDay(t *testing.T) {
	today := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := &mockMoodStore{
		records: []domain.MoodRecord{
			{ID: "m1", MoodType: domain.MoodBad, Datetime: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)},
			{ID: "m2", MoodType: domain.MoodGreat, Datetime: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)},
		},
	}
	svc := service.NewMoodService(store, zap.NewNop())

	series, err := svc.WeeklySeries(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var day *domain.MoodDay
	for i := range series {
		if series[i].Date == "2026-03-14" {
			day = &series[i]
		}
	}
	if day == nil || day.Mood == nil {
		t.Fatal("expected a mood on 2026-03-14")
	}
	if day.Mood.ID != "m2" {
		t.Errorf("expected the later record m2 to win, got %s", day.Mood.ID)
	}
}

func TestWeeklySeries_StoreErrorPropagates(t *testing.T) {
	store := &mockMoodStore{listErr: errors.New("connection refused")}
	svc := service.NewMoodService(store, zap.NewNop())

	if _, err := svc.WeeklySeries(context.Background(), "user-1", time.Now()); err == nil {
		t.Fatal("expected error, got nil")
	}
}
