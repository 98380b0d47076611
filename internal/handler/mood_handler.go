package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Mood
// GET  /v1/mood/weekly?date=YYYY-MM-DD
// POST /v1/mood
// ============================================================

func moodWeeklyHandler(moodSvc *service.MoodService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/mood/weekly")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		today := time.Now()
		if v := r.URL.Query().Get("date"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			today = t
		}

		series, err := moodSvc.WeeklySeries(ctx, userID, today)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"days": series})
	}
}

func moodCreateHandler(moodSvc *service.MoodService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/mood")
		defer span.End()

		userID := UserIDFromContext(ctx)

		var rec domain.MoodRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rec.UserID = userID

		created, err := moodSvc.Create(ctx, &rec)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}
