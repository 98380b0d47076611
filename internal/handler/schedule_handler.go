package handler

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Schedule
// GET    /v1/schedule?from=YYYY-MM-DD&to=YYYY-MM-DD
// POST   /v1/schedule
// PATCH  /v1/schedule/{scheduleId}/status
// DELETE /v1/schedule/{scheduleId}
// ============================================================

func scheduleListHandler(scheduleSvc *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/schedule")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		// Default window: the month around today.
		now := time.Now()
		from := now.AddDate(0, 0, -15)
		to := now.AddDate(0, 0, 15)
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
				return
			}
			from = t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
				return
			}
			to = t.Add(24*time.Hour - time.Second)
		}

		buckets, err := scheduleSvc.Buckets(ctx, userID, from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		dates := make([]string, 0, len(buckets))
		for d := range buckets {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		writeJSON(w, http.StatusOK, map[string]any{
			"buckets": buckets,
			"dates":   dates,
		})
	}
}

func scheduleCreateHandler(scheduleSvc *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/schedule")
		defer span.End()

		userID := UserIDFromContext(ctx)

		var rec domain.ScheduleRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rec.UserID = userID

		created, err := scheduleSvc.Create(ctx, &rec)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func scheduleToggleHandler(scheduleSvc *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/schedule/{scheduleId}/status")
		defer span.End()

		userID := UserIDFromContext(ctx)
		scheduleID := chi.URLParam(r, "scheduleId")
		if scheduleID == "" {
			writeError(w, http.StatusBadRequest, "scheduleId is required")
			return
		}
		span.SetAttributes(attribute.String("schedule.id", scheduleID))

		// The client sends its current view of the reminder; the toggle is
		// optimistic against that state.
		var req struct {
			Type   domain.ScheduleType   `json:"type"`
			Status domain.ScheduleStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec := &domain.ScheduleRecord{
			ID:     scheduleID,
			UserID: userID,
			Type:   req.Type,
			Status: req.Status,
		}

		toggled, err := scheduleSvc.ToggleStatus(ctx, rec)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toggled)
	}
}

func scheduleDeleteHandler(scheduleSvc *service.ScheduleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/schedule/{scheduleId}")
		defer span.End()

		userID := UserIDFromContext(ctx)
		scheduleID := chi.URLParam(r, "scheduleId")
		if scheduleID == "" {
			writeError(w, http.StatusBadRequest, "scheduleId is required")
			return
		}

		if err := scheduleSvc.Delete(ctx, userID, scheduleID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
