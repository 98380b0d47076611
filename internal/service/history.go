package service

import (
	"context"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var historyTracer = otel.Tracer("service/history")

// HistoryService serves the utterance history list.
type HistoryService struct {
	store port.HistoryStore
}

// NewHistoryService creates the history service.
func NewHistoryService(store port.HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns a page of the user's history, newest first.
func (s *HistoryService) List(ctx context.Context, userID string, page, pageSize int) ([]domain.HistoryRecord, error) {
	ctx, span := historyTracer.Start(ctx, "HistoryService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.ListHistory(ctx, userID, page, pageSize)
}

// Delete removes one history record. Records that reference it via
// history_id keep their soft back-reference; no cascade happens.
func (s *HistoryService) Delete(ctx context.Context, userID, historyID string) error {
	ctx, span := historyTracer.Start(ctx, "HistoryService.Delete")
	defer span.End()

	return s.store.DeleteHistory(ctx, userID, historyID)
}
