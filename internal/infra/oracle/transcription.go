// Package oracle provides clients for the two LLM oracles: audio
// transcription and schema-constrained structured extraction.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("oracle")

// TranscriptionClient calls a Whisper-style audio transcription endpoint.
type TranscriptionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewTranscriptionClient creates a new TranscriptionClient.
func NewTranscriptionClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *TranscriptionClient {
	return &TranscriptionClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the captured audio and returns the transcript. The
// local audio file is removed on every exit path, success or error. An
// empty transcript is returned as-is; the pipeline treats it as a soft
// failure, not this client.
func (c *TranscriptionClient) Transcribe(ctx context.Context, capture *domain.AudioCapture) (string, error) {
	ctx, span := tracer.Start(ctx, "TranscriptionClient.Transcribe")
	defer span.End()

	defer func() {
		if err := os.Remove(capture.FilePath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove audio capture",
				zap.String("path", capture.FilePath),
				zap.Error(err),
			)
		}
	}()

	audio, err := os.ReadFile(capture.FilePath)
	if err != nil {
		return "", &domain.ErrTranscription{Err: err}
	}

	var transcript string
	err = resilience.Protect(ctx, c.cb, c.cfg, func() error {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		part, err := writer.CreateFormFile("file", capture.FilePath)
		if err != nil {
			return err
		}
		if _, err := part.Write(audio); err != nil {
			return err
		}
		if err := writer.WriteField("model", c.model); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		url := fmt.Sprintf("%s/v1/audio/transcriptions", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			c.logger.Warn("transcription oracle: non-2xx response",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
			)
			return fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, string(body))
		}

		var parsed transcriptionResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return err
		}
		transcript = parsed.Text
		return nil
	})
	if err != nil {
		return "", &domain.ErrTranscription{Err: err}
	}

	return transcript, nil
}
