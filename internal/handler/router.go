package handler

import (
	"net/http"
	"time"

	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/port"
	"github.com/echoease/echoease-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router serves.
type Services struct {
	Pipeline *service.Pipeline
	Finance  *service.FinanceService
	Schedule *service.ScheduleService
	Mood     *service.MoodService
	History  *service.HistoryService
	Auth     *service.AuthService
	Bus      port.EventBus
	Metrics  *observability.Metrics
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.History, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(svcs.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 (all user-scoped, behind session auth) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(svcs.Auth, logger))

		// Utterance pipeline
		r.Post("/utterances", utteranceTextHandler(svcs.Pipeline, logger))
		r.Post("/utterances/audio", utteranceAudioHandler(svcs.Pipeline, logger))

		// Finance views
		r.Get("/finance/summary", financeSummaryHandler(svcs.Finance, logger))
		r.Get("/finance/categories", financeCategoriesHandler(svcs.Finance, logger))

		// Schedule
		r.Get("/schedule", scheduleListHandler(svcs.Schedule, logger))
		r.Post("/schedule", scheduleCreateHandler(svcs.Schedule, logger))
		r.Patch("/schedule/{scheduleId}/status", scheduleToggleHandler(svcs.Schedule, logger))
		r.Delete("/schedule/{scheduleId}", scheduleDeleteHandler(svcs.Schedule, logger))

		// Mood
		r.Get("/mood/weekly", moodWeeklyHandler(svcs.Mood, logger))
		r.Post("/mood", moodCreateHandler(svcs.Mood, logger))

		// History
		r.Get("/history", historyListHandler(svcs.History, logger))
		r.Delete("/history/{historyId}", historyDeleteHandler(svcs.History, logger))

		// Realtime feed
		r.Get("/events", eventsHandler(svcs.Bus, logger))

		// Pipeline metrics snapshot
		r.Get("/metrics/pipeline", pipelineMetricsHandler(svcs.Metrics))
	})

	return r
}

// ============================================================
// Health & metrics
// ============================================================

type serviceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

func healthzHandler(historySvc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		services := []serviceHealth{
			{Name: "echoease-core", Status: "healthy"},
		}

		if historySvc != nil {
			start := time.Now()
			_, err := historySvc.List(ctx, "health-check", 1, 1)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: document store probe failed", zap.Error(err))
			}
			services = append(services, serviceHealth{Name: "appwrite", Status: status, LatencyMs: latency})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   overall,
			"services": services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
