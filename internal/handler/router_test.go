package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/handler"
	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type stubHistoryStore struct {
	records []domain.HistoryRecord
}

func (s *stubHistoryStore) CreateHistory(_ context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	return rec, nil
}

func (s *stubHistoryStore) ListHistory(_ context.Context, _ string, _, _ int) ([]domain.HistoryRecord, error) {
	return s.records, nil
}

func (s *stubHistoryStore) DeleteHistory(_ context.Context, _, _ string) error { return nil }

func testRouter() http.Handler {
	return handler.NewRouter(handler.Services{
		History: service.NewHistoryService(&stubHistoryStore{
			records: []domain.HistoryRecord{{ID: "h1", UserID: "user-1", TranscribedText: "hello"}},
		}),
		Auth:    service.NewAuthService("test-secret"),
		Metrics: observability.NewMetrics(),
	}, zap.NewNop())
}

func sessionToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("could not sign token: %v", err)
	}
	return signed
}

func TestHealthz(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestV1RequiresSessionToken(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestV1RejectsMalformedAuthHeader(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed header, got %d", rec.Code)
	}
}

func TestHistoryList_WithValidToken(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "user-1"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		History []domain.HistoryRecord `json:"history"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if len(resp.History) != 1 || resp.History[0].ID != "h1" {
		t.Errorf("unexpected history payload: %+v", resp.History)
	}
}

func TestPipelineMetricsSnapshot(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/pipeline", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "user-1"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats domain.PipelineStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("could not decode snapshot: %v", err)
	}
}
