package handler

import (
	"net/http"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// History
// GET    /v1/history?page&page_size
// DELETE /v1/history/{historyId}
// ============================================================

func historyListHandler(historySvc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/history")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))
		page, pageSize := parsePagination(r)

		records, err := historySvc.List(ctx, userID, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if records == nil {
			records = []domain.HistoryRecord{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"history":   records,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func historyDeleteHandler(historySvc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/history/{historyId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		historyID := chi.URLParam(r, "historyId")
		if historyID == "" {
			writeError(w, http.StatusBadRequest, "historyId is required")
			return
		}

		if err := historySvc.Delete(ctx, userID, historyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
