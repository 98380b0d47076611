package service

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var moodTracer = otel.Tracer("service/mood")

// MoodService serves mood logging and the weekly mood series.
type MoodService struct {
	store  port.MoodStore
	logger *zap.Logger
}

// NewMoodService creates the mood service.
func NewMoodService(store port.MoodStore, logger *zap.Logger) *MoodService {
	return &MoodService{store: store, logger: logger}
}

// Create validates and persists one mood record.
func (s *MoodService) Create(ctx context.Context, rec *domain.MoodRecord) (*domain.MoodRecord, error) {
	ctx, span := moodTracer.Start(ctx, "MoodService.Create")
	defer span.End()

	if !domain.ValidMoodLevel(string(rec.MoodType)) {
		return nil, &domain.ErrValidation{Field: "mood_type", Message: "must be one of the five mood levels"}
	}
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now()
	}

	return s.store.CreateMood(ctx, rec)
}

// WeeklySeries returns the seven days ending at today, oldest first. At
// most one mood per day: when multiple records land on the same date the
// latest datetime wins (no uniqueness is enforced at creation).
func (s *MoodService) WeeklySeries(ctx context.Context, userID string, today time.Time) ([]domain.MoodDay, error) {
	ctx, span := moodTracer.Start(ctx, "MoodService.WeeklySeries")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	end := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, today.Location())
	start := end.AddDate(0, 0, -6)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	records, err := s.store.ListMoods(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	// Day keys follow the caller's location so the window and the records
	// agree on what "a day" is.
	latestByDay := make(map[string]domain.MoodRecord)
	for _, rec := range records {
		key := rec.Datetime.In(today.Location()).Format("2006-01-02")
		if existing, ok := latestByDay[key]; !ok || !rec.Datetime.Before(existing.Datetime) {
			latestByDay[key] = rec
		}
	}

	series := make([]domain.MoodDay, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		md := domain.MoodDay{Date: key}
		if rec, ok := latestByDay[key]; ok {
			mood := rec
			md.Mood = &mood
		}
		series = append(series, md)
	}

	return series, nil
}
