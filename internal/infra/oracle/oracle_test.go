package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/infra/oracle"
	"github.com/echoease/echoease-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func testResilienceCfg() resilience.Config {
	return resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 1}
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "capture-*.m4a")
	if err != nil {
		t.Fatalf("could not create temp audio: %v", err)
	}
	if _, err := tmp.WriteString("fake-audio-bytes"); err != nil {
		t.Fatalf("could not write temp audio: %v", err)
	}
	tmp.Close()
	return tmp.Name()
}

// --- Transcription ---

func TestTranscribe_Success(t *testing.T) {
	var gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("could not parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected a file part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "buy milk tomorrow"})
	}))
	defer server.Close()

	client := oracle.NewTranscriptionClient(server.Client(), server.URL, "test-key", "whisper-large-v3",
		resilience.NewCircuitBreaker("test"), testResilienceCfg(), zap.NewNop())

	path := writeTempAudio(t)
	text, err := client.Transcribe(context.Background(), &domain.AudioCapture{FilePath: path, MimeType: "audio/mp4"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "buy milk tomorrow" {
		t.Errorf("unexpected transcript '%s'", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header '%s'", gotAuth)
	}
	if gotModel != "whisper-large-v3" {
		t.Errorf("unexpected model '%s'", gotModel)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the capture file to be removed after transcription")
	}
}

func TestTranscribe_Non2xxRemovesCapture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := oracle.NewTranscriptionClient(server.Client(), server.URL, "test-key", "whisper-large-v3",
		resilience.NewCircuitBreaker("test"), testResilienceCfg(), zap.NewNop())

	path := writeTempAudio(t)
	_, err := client.Transcribe(context.Background(), &domain.AudioCapture{FilePath: path})

	var terr *domain.ErrTranscription
	if !errors.As(err, &terr) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the capture file to be removed even on failure")
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	client := oracle.NewTranscriptionClient(http.DefaultClient, "http://unused", "test-key", "whisper-large-v3",
		resilience.NewCircuitBreaker("test"), testResilienceCfg(), zap.NewNop())

	_, err := client.Transcribe(context.Background(), &domain.AudioCapture{FilePath: "/nonexistent/capture.m4a"})
	var terr *domain.ErrTranscription
	if !errors.As(err, &terr) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

// --- Extraction ---

func chatCompletionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 60},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newExtractionClient(serverURL string) *oracle.ExtractionClient {
	return oracle.NewExtractionClient(http.DefaultClient, serverURL, "test-key", "llama-3.3-70b-versatile",
		resilience.NewCircuitBreaker("test"), testResilienceCfg(), observability.NewMetrics(), zap.NewNop())
}

func TestClassify_Success(t *testing.T) {
	content := `{
		"schedule": [{"title": "dentist", "description": "", "type": "event",
			"start_time": "2026-03-10T09:00:00Z", "end_time": "", "due_date": "", "notify_at": ""}],
		"finance": [{"name": "lunch", "amount": "30", "date": "", "category": "Food"}],
		"mood": [{"datetime": "", "mood_type": "good", "description": ""}],
		"other": []
	}`

	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, chatCompletionBody(content))
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	data, err := client.Classify(context.Background(), "busy day", []string{"Food", "Travel"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(data.Schedule) != 1 || data.Schedule[0].Title != "dentist" {
		t.Errorf("unexpected schedule items: %+v", data.Schedule)
	}
	if len(data.Finance) != 1 || data.Finance[0].Category != "Food" {
		t.Errorf("unexpected finance items: %+v", data.Finance)
	}
	if len(data.Mood) != 1 || data.Mood[0].MoodType != "good" {
		t.Errorf("unexpected mood items: %+v", data.Mood)
	}

	var sent struct {
		Model          string          `json:"model"`
		ResponseFormat json.RawMessage `json:"response_format"`
	}
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("could not parse sent request: %v", err)
	}
	if sent.Model != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected model '%s'", sent.Model)
	}
	if len(sent.ResponseFormat) == 0 {
		t.Error("expected a response_format schema in the request")
	}
}

func TestClassify_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limit exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	_, err := client.Classify(context.Background(), "hello", nil)

	var cerr *domain.ErrClassification
	if !errors.As(err, &cerr) {
		t.Fatalf("expected classification error, got %v", err)
	}
}

func TestClassify_NonJSONContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatCompletionBody("sorry, I cannot help with that"))
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	_, err := client.Classify(context.Background(), "hello", nil)

	var cerr *domain.ErrClassification
	if !errors.As(err, &cerr) {
		t.Fatalf("expected classification error, got %v", err)
	}
}

func TestClassify_SchemaViolationRejected(t *testing.T) {
	content := `{
		"schedule": [],
		"finance": [{"name": "lunch", "amount": "not-a-number", "date": "", "category": "Food"}],
		"mood": [],
		"other": []
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatCompletionBody(content))
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	_, err := client.Classify(context.Background(), "hello", nil)

	var cerr *domain.ErrClassification
	if !errors.As(err, &cerr) {
		t.Fatalf("expected classification error, got %v", err)
	}
}

func TestClassify_InvalidMoodLevelRejected(t *testing.T) {
	content := `{
		"schedule": [],
		"finance": [],
		"mood": [{"datetime": "", "mood_type": "ecstatic", "description": ""}],
		"other": []
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatCompletionBody(content))
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	_, err := client.Classify(context.Background(), "hello", nil)

	var cerr *domain.ErrClassification
	if !errors.As(err, &cerr) {
		t.Fatalf("expected classification error, got %v", err)
	}
}

func TestClassify_MissingChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [], "usage": {"prompt_tokens": 1, "completion_tokens": 0}}`)
	}))
	defer server.Close()

	client := newExtractionClient(server.URL)
	if _, err := client.Classify(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}
