package handler

import (
	"net/http"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Finance views
// GET /v1/finance/summary
// GET /v1/finance/categories
// ============================================================

func financeSummaryHandler(financeSvc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/summary")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		summary, err := financeSvc.Summary(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func financeCategoriesHandler(financeSvc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/categories")
		defer span.End()

		userID := UserIDFromContext(ctx)

		categories, err := financeSvc.KnownCategories(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if categories == nil {
			categories = []domain.FinanceCategory{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	}
}
