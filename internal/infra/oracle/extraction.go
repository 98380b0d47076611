package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExtractionClient calls an OpenAI-compatible chat completions endpoint
// with a strict JSON schema response format and validates the payload.
type ExtractionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewExtractionClient creates a new ExtractionClient.
func NewExtractionClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *ExtractionClient {
	return &ExtractionClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat json.RawMessage `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You are a personal life-tracking assistant. Split the user's utterance into
schedule entries (events and reminders), finance entries (expenses), mood entries and other notes.
Use RFC3339 for all timestamps and leave fields you cannot infer as empty strings.
Prefer one of the user's existing finance categories when it fits; otherwise invent a short new one.
Mood levels are exactly: terrible, bad, okay, good, great.`

// categorizedDataSchema is the strict response schema: four required
// arrays, all item fields required, no undeclared fields permitted.
const categorizedDataSchema = `{
  "type": "json_schema",
  "json_schema": {
    "name": "categorized_data",
    "strict": true,
    "schema": {
      "type": "object",
      "additionalProperties": false,
      "required": ["schedule", "finance", "mood", "other"],
      "properties": {
        "schedule": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["title", "description", "type", "start_time", "end_time", "due_date", "notify_at"],
            "properties": {
              "title": {"type": "string"},
              "description": {"type": "string"},
              "type": {"type": "string", "enum": ["event", "reminder"]},
              "start_time": {"type": "string"},
              "end_time": {"type": "string"},
              "due_date": {"type": "string"},
              "notify_at": {"type": "string"}
            }
          }
        },
        "finance": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["name", "amount", "date", "category"],
            "properties": {
              "name": {"type": "string"},
              "amount": {"type": "string"},
              "date": {"type": "string"},
              "category": {"type": "string"}
            }
          }
        },
        "mood": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["datetime", "mood_type", "description"],
            "properties": {
              "datetime": {"type": "string"},
              "mood_type": {"type": "string", "enum": ["terrible", "bad", "okay", "good", "great"]},
              "description": {"type": "string"}
            }
          }
        },
        "other": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["content"],
            "properties": {
              "content": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// Classify sends the transcript plus known finance categories to the
// extraction oracle. Non-2xx, unparsable, or schema-invalid payloads all
// surface as ErrClassification.
func (c *ExtractionClient) Classify(ctx context.Context, text string, knownCategories []string) (*domain.CategorizedData, error) {
	ctx, span := tracer.Start(ctx, "ExtractionClient.Classify")
	defer span.End()
	span.SetAttributes(attribute.Int("known_categories", len(knownCategories)))

	userPrompt := fmt.Sprintf("Existing finance categories: [%s]\n\nUtterance: %s",
		strings.Join(knownCategories, ", "), text)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: json.RawMessage(categorizedDataSchema),
	}

	var data domain.CategorizedData
	err := resilience.Protect(ctx, c.cb, c.cfg, func() error {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}

		url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr chatResponse
			if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error != nil {
				return fmt.Errorf("extraction API error: %s", apiErr.Error.Message)
			}
			c.logger.Warn("extraction oracle: non-2xx response",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
			)
			return fmt.Errorf("extraction API returned status %d", resp.StatusCode)
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return err
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("extraction response missing choices")
		}

		c.metrics.RecordTokens(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)

		data = domain.CategorizedData{}
		if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &data); err != nil {
			return fmt.Errorf("payload is not valid JSON: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrClassification{Reason: "oracle call failed", Err: err}
	}

	if err := validateCategorizedData(&data); err != nil {
		return nil, err
	}

	return &data, nil
}

// validateCategorizedData enforces the schema contract locally. The oracle
// promises strict output, but a malformed payload must be a hard failure,
// not best-effort parsing.
func validateCategorizedData(d *domain.CategorizedData) error {
	for i, item := range d.Schedule {
		if item.Title == "" {
			return &domain.ErrClassification{Reason: fmt.Sprintf("schedule[%d]: missing title", i)}
		}
		if item.Type != string(domain.ScheduleEvent) && item.Type != string(domain.ScheduleReminder) {
			return &domain.ErrClassification{Reason: fmt.Sprintf("schedule[%d]: invalid type %q", i, item.Type)}
		}
	}
	for i, item := range d.Finance {
		if item.Name == "" {
			return &domain.ErrClassification{Reason: fmt.Sprintf("finance[%d]: missing name", i)}
		}
		if item.Category == "" {
			return &domain.ErrClassification{Reason: fmt.Sprintf("finance[%d]: missing category", i)}
		}
		if _, err := strconv.ParseFloat(item.Amount, 64); err != nil {
			return &domain.ErrClassification{Reason: fmt.Sprintf("finance[%d]: amount %q is not a decimal", i, item.Amount)}
		}
	}
	for i, item := range d.Mood {
		if !domain.ValidMoodLevel(item.MoodType) {
			return &domain.ErrClassification{Reason: fmt.Sprintf("mood[%d]: invalid mood_type %q", i, item.MoodType)}
		}
	}
	for i, item := range d.Other {
		if item.Content == "" {
			return &domain.ErrClassification{Reason: fmt.Sprintf("other[%d]: missing content", i)}
		}
	}
	return nil
}
