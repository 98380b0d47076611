// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
)

// Transcriber turns a recorded audio capture into plain text. The capture
// file is released on every exit path, success or error. An empty or
// whitespace-only transcript is not an error here; the caller decides.
type Transcriber interface {
	Transcribe(ctx context.Context, capture *domain.AudioCapture) (string, error)
}

// Classifier sends text plus the caller's known finance category names to
// the extraction oracle and returns schema-validated structured data.
type Classifier interface {
	Classify(ctx context.Context, text string, knownCategories []string) (*domain.CategorizedData, error)
}

// HistoryStore persists utterance anchor records.
type HistoryStore interface {
	CreateHistory(ctx context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error)
	ListHistory(ctx context.Context, userID string, page, pageSize int) ([]domain.HistoryRecord, error)
	DeleteHistory(ctx context.Context, userID, historyID string) error
}

// ScheduleStore persists schedule/reminder records.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, rec *domain.ScheduleRecord) (*domain.ScheduleRecord, error)
	ListSchedules(ctx context.Context, userID string, from, to time.Time) ([]domain.ScheduleRecord, error)
	UpdateScheduleStatus(ctx context.Context, scheduleID string, status domain.ScheduleStatus) error
	DeleteSchedule(ctx context.Context, userID, scheduleID string) error
}

// FinanceStore persists finance categories and spending records.
type FinanceStore interface {
	ListCategories(ctx context.Context, userID string) ([]domain.FinanceCategory, error)
	CreateCategory(ctx context.Context, cat *domain.FinanceCategory) (*domain.FinanceCategory, error)
	ListSpending(ctx context.Context, userID string) ([]domain.SpendingRecord, error)
	CreateSpending(ctx context.Context, rec *domain.SpendingRecord) (*domain.SpendingRecord, error)
}

// MoodStore persists mood records.
type MoodStore interface {
	CreateMood(ctx context.Context, rec *domain.MoodRecord) (*domain.MoodRecord, error)
	ListMoods(ctx context.Context, userID string, from, to time.Time) ([]domain.MoodRecord, error)
}

// OtherStore persists classified content that fits no tracking domain.
type OtherStore interface {
	CreateOther(ctx context.Context, rec *domain.OtherRecord) (*domain.OtherRecord, error)
}

// RecordStore is the full document-store surface the pipeline fans out to.
type RecordStore interface {
	HistoryStore
	ScheduleStore
	FinanceStore
	MoodStore
	OtherStore
}

// EventBus is the realtime change feed: subscribe-by-collection push
// notifications delivered after successful store mutations. Events are
// invalidate signals, never incremental patches.
type EventBus interface {
	Publish(event domain.RealtimeEvent)
	Subscribe(collections ...string) (<-chan domain.RealtimeEvent, func())
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
}
