package appwrite_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/appwrite"
	"github.com/echoease/echoease-go/internal/infra/realtime"
	"github.com/echoease/echoease-go/internal/infra/resilience"
	"github.com/echoease/echoease-go/internal/port"

	"go.uber.org/zap"
)

var testCollections = appwrite.Collections{
	History:    "history",
	Schedule:   "schedule",
	Categories: "finance_categories",
	Spending:   "spending",
	Mood:       "mood",
	Other:      "other",
}

func newTestClient(serverURL string, bus port.EventBus) *appwrite.Client {
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 1}
	return appwrite.NewClient(http.DefaultClient, serverURL, "proj-1", "key-1", "echoease",
		testCollections, resilience.NewCircuitBreaker("test"), cfg, bus, zap.NewNop())
}

func TestCreateHistory_SendsDocumentEnvelope(t *testing.T) {
	var gotPath, gotProject, gotKey string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProject = r.Header.Get("X-Appwrite-Project")
		gotKey = r.Header.Get("X-Appwrite-Key")
		json.NewDecoder(r.Body).Decode(&gotPayload)

		json.NewEncoder(w).Encode(map[string]any{
			"$id":              "hist-1",
			"$createdAt":       "2026-03-10T09:00:00Z",
			"user_id":          "user-1",
			"transcribed_text": "busy day",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	created, err := client.CreateHistory(context.Background(), &domain.HistoryRecord{
		ID:              "hist-1",
		UserID:          "user-1",
		TranscribedText: "busy day",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/v1/databases/echoease/collections/history/documents" {
		t.Errorf("unexpected path '%s'", gotPath)
	}
	if gotProject != "proj-1" || gotKey != "key-1" {
		t.Errorf("unexpected auth headers: project '%s', key '%s'", gotProject, gotKey)
	}
	if gotPayload["documentId"] != "hist-1" {
		t.Errorf("unexpected documentId %v", gotPayload["documentId"])
	}
	data, ok := gotPayload["data"].(map[string]any)
	if !ok || data["transcribed_text"] != "busy day" {
		t.Errorf("unexpected data payload %v", gotPayload["data"])
	}

	if created.ID != "hist-1" || created.UserID != "user-1" {
		t.Errorf("unexpected created record: %+v", created)
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected $createdAt to be parsed")
	}
}

func TestListHistory_DecodesListEnvelope(t *testing.T) {
	var gotQueries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQueries = r.URL.Query()["queries[]"]
		fmt.Fprint(w, `{
			"total": 2,
			"documents": [
				{"$id": "h2", "$createdAt": "2026-03-11T08:00:00Z", "user_id": "user-1", "transcribed_text": "second"},
				{"$id": "h1", "$createdAt": "2026-03-10T08:00:00Z", "user_id": "user-1", "transcribed_text": "first"}
			]
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	records, err := client.ListHistory(context.Background(), "user-1", 1, 20)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "h2" || records[1].TranscribedText != "first" {
		t.Errorf("unexpected records: %+v", records)
	}

	joined := strings.Join(gotQueries, " ")
	if !strings.Contains(joined, `equal("user_id", ["user-1"])`) {
		t.Errorf("expected a user_id filter, got %v", gotQueries)
	}
	if !strings.Contains(joined, "limit(20)") || !strings.Contains(joined, "offset(0)") {
		t.Errorf("expected pagination queries, got %v", gotQueries)
	}
}

func TestCreate_MirrorsOntoRealtimeBus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"$id": "hist-1", "user_id": "user-1"})
	}))
	defer server.Close()

	bus := realtime.NewHub()
	events, unsubscribe := bus.Subscribe("history")
	defer unsubscribe()

	client := newTestClient(server.URL, bus)
	if _, err := client.CreateHistory(context.Background(), &domain.HistoryRecord{ID: "hist-1", UserID: "user-1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case ev := <-events:
		if ev.Collection != "history" {
			t.Errorf("unexpected collection '%s'", ev.Collection)
		}
		if len(ev.Events) != 1 || !strings.HasSuffix(ev.Events[0], ".create") {
			t.Errorf("unexpected event names %v", ev.Events)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a realtime event after create")
	}
}

func TestDeleteHistory_NotFoundWhenNotOwned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ownership probe finds nothing.
		fmt.Fprint(w, `{"total": 0, "documents": []}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	err := client.DeleteHistory(context.Background(), "user-2", "hist-1")

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreateHistory_StoreFailureWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "database unavailable"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.CreateHistory(context.Background(), &domain.HistoryRecord{ID: "hist-1", UserID: "user-1"})

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected external-service error, got %v", err)
	}
}
