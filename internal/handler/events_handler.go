package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/echoease/echoease-go/internal/port"
	"github.com/echoease/echoease-go/internal/service"

	"go.uber.org/zap"
)

// defaultEventCollections is the full feed: every store collection plus
// the post-commit refresh channels.
var defaultEventCollections = []string{
	"history",
	"schedule",
	"finance_categories",
	"spending",
	"mood",
	"other",
	service.RefreshSchedule,
	service.RefreshMood,
}

// eventsHandler streams the realtime feed over SSE. Clients pick the
// collections they care about via ?collections=a,b and must treat every
// event as an invalidate signal: drop local state and refetch.
func eventsHandler(bus port.EventBus, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		collections := defaultEventCollections
		if v := r.URL.Query().Get("collections"); v != "" {
			collections = nil
			for _, c := range strings.Split(v, ",") {
				if c = strings.TrimSpace(c); c != "" {
					collections = append(collections, c)
				}
			}
		}
		if len(collections) == 0 {
			writeError(w, http.StatusBadRequest, "collections must not be empty")
			return
		}

		events, unsubscribe := bus.Subscribe(collections...)
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					logger.Warn("events: could not marshal event", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Collection, payload)
				flusher.Flush()
			}
		}
	}
}
