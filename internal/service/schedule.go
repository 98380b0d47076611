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

var scheduleTracer = otel.Tracer("service/schedule")

// NoTimePlaceholder is shown when a record has no time component.
const NoTimePlaceholder = "No time available"

// Bucket groups schedule records by calendar date: start_time for events,
// due_date for reminders. Records lacking the relevant field are silently
// dropped. Idempotent: the same input always yields the same buckets.
func Bucket(records []domain.ScheduleRecord) map[string][]domain.ScheduleRecord {
	buckets := make(map[string][]domain.ScheduleRecord)
	for _, rec := range records {
		key, ok := rec.DateKey()
		if !ok {
			continue
		}
		buckets[key] = append(buckets[key], rec)
	}
	return buckets
}

// FormatClock renders a timestamp as local hour:minute for display, or
// the placeholder when absent.
func FormatClock(t *time.Time) string {
	if t == nil {
		return NoTimePlaceholder
	}
	return t.Local().Format("15:04")
}

// Toggle transition states. A reminder flip is optimistic: the local copy
// flips first, the remote update confirms it, and a remote failure
// deterministically reverts the flip instead of leaving the view adrift.
const (
	toggleConfirmed = "confirmed"
	togglePending   = "pending_confirm"
	toggleReverted  = "reverted"
)

// ScheduleService serves bucketed schedule views and reminder toggles.
type ScheduleService struct {
	store   port.ScheduleStore
	metrics metricsRecorder
	logger  *zap.Logger
}

// NewScheduleService creates the schedule service.
func NewScheduleService(store port.ScheduleStore, metrics metricsRecorder, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{store: store, metrics: metrics, logger: logger}
}

// Create validates and persists a user-created schedule record.
func (s *ScheduleService) Create(ctx context.Context, rec *domain.ScheduleRecord) (*domain.ScheduleRecord, error) {
	ctx, span := scheduleTracer.Start(ctx, "ScheduleService.Create")
	defer span.End()

	if rec.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "required"}
	}
	if rec.Type != domain.ScheduleEvent && rec.Type != domain.ScheduleReminder {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be event or reminder"}
	}
	if rec.Type == domain.ScheduleReminder && rec.Status == "" {
		rec.Status = domain.StatusPending
	}

	return s.store.CreateSchedule(ctx, rec)
}

// Buckets lists the user's records in [from, to] and groups them by date.
func (s *ScheduleService) Buckets(ctx context.Context, userID string, from, to time.Time) (map[string][]domain.ScheduleRecord, error) {
	ctx, span := scheduleTracer.Start(ctx, "ScheduleService.Buckets")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	records, err := s.store.ListSchedules(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	// The window filter lives here because the date key depends on the
	// record type (start_time vs due_date).
	buckets := Bucket(records)
	lo := from.Format("2006-01-02")
	hi := to.Format("2006-01-02")
	for key := range buckets {
		if key < lo || key > hi {
			delete(buckets, key)
		}
	}
	return buckets, nil
}

// ToggleStatus flips a reminder between pending and completed. The flip
// is applied to the returned copy immediately and confirmed remotely; a
// remote failure reverts the flip and surfaces as ErrPersistence.
func (s *ScheduleService) ToggleStatus(ctx context.Context, rec *domain.ScheduleRecord) (*domain.ScheduleRecord, error) {
	ctx, span := scheduleTracer.Start(ctx, "ScheduleService.ToggleStatus")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.id", rec.ID))

	if rec.Type != domain.ScheduleReminder {
		return nil, &domain.ErrValidation{Field: "type", Message: "status toggle is only valid for reminders"}
	}

	previous := rec.Status
	next := domain.StatusCompleted
	if previous == domain.StatusCompleted {
		next = domain.StatusPending
	}

	// Optimistic flip, awaiting remote confirmation.
	toggled := *rec
	toggled.Status = next
	state := togglePending

	if err := s.store.UpdateScheduleStatus(ctx, rec.ID, next); err != nil {
		state = toggleReverted
		toggled.Status = previous
		s.logger.Warn("schedule: status toggle reverted",
			zap.String("schedule_id", rec.ID),
			zap.String("state", state),
			zap.Error(err),
		)
		return &toggled, &domain.ErrPersistence{Collection: "schedule", Err: err}
	}

	state = toggleConfirmed
	s.logger.Debug("schedule: status toggle confirmed",
		zap.String("schedule_id", rec.ID),
		zap.String("state", state),
		zap.String("status", string(next)),
	)
	return &toggled, nil
}

// Delete removes one schedule record.
func (s *ScheduleService) Delete(ctx context.Context, userID, scheduleID string) error {
	ctx, span := scheduleTracer.Start(ctx, "ScheduleService.Delete")
	defer span.End()

	return s.store.DeleteSchedule(ctx, userID, scheduleID)
}
