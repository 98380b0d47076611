// Package appwrite provides a client for the Appwrite Databases REST API.
// Used as the real document store for history, schedule, finance and mood
// records. Successful mutations are mirrored onto the realtime event bus.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/resilience"
	"github.com/echoease/echoease-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("appwrite")

// Collections maps logical collections to their Appwrite collection IDs.
type Collections struct {
	History    string
	Schedule   string
	Categories string
	Spending   string
	Mood       string
	Other      string
}

// Client wraps HTTP calls to the Appwrite Databases API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	projectID   string
	apiKey      string
	databaseID  string
	collections Collections
	cb          *gobreaker.CircuitBreaker
	cfg         resilience.Config
	bus         port.EventBus
	logger      *zap.Logger
}

// NewClient creates an Appwrite client. bus may be nil when no realtime
// mirroring is wanted (tests).
func NewClient(httpClient *http.Client, baseURL, projectID, apiKey, databaseID string, collections Collections, cb *gobreaker.CircuitBreaker, cfg resilience.Config, bus port.EventBus, logger *zap.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		projectID:   projectID,
		apiKey:      apiKey,
		databaseID:  databaseID,
		collections: collections,
		cb:          cb,
		cfg:         cfg,
		bus:         bus,
		logger:      logger,
	}
}

// documentsPath builds the documents endpoint for a collection, optionally
// suffixed with a document ID.
func (c *Client) documentsPath(collectionID, documentID string) string {
	p := fmt.Sprintf("%s/v1/databases/%s/collections/%s/documents", c.baseURL, c.databaseID, collectionID)
	if documentID != "" {
		p += "/" + url.PathEscape(documentID)
	}
	return p
}

// doRequest executes an authenticated request against the Appwrite API.
// Non-2xx responses become errors carrying the response body.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		c.logger.Error("appwrite: failed to create request",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("X-Appwrite-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("appwrite: request failed",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("appwrite: failed to read response body",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrNotFound{Resource: "document", ID: rawURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("appwrite: non-2xx response",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("appwrite returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("appwrite: request OK",
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// createDocument POSTs a new document with a caller-supplied ID and
// decodes the created representation into out.
func (c *Client) createDocument(ctx context.Context, collectionID, documentID string, data map[string]any, out any) error {
	payload := map[string]any{
		"documentId": documentID,
		"data":       data,
	}

	err := resilience.Protect(ctx, c.cb, c.cfg, func() error {
		body, err := c.doRequest(ctx, http.MethodPost, c.documentsPath(collectionID, ""), payload)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(body, out)
	})
	if err != nil {
		return err
	}

	c.publish(collectionID, documentID, "create")
	return nil
}

// listEnvelope is the Appwrite list-documents response shape.
type listEnvelope struct {
	Total     int             `json:"total"`
	Documents json.RawMessage `json:"documents"`
}

// listDocuments GETs documents matching the given queries and decodes the
// documents array into out.
func (c *Client) listDocuments(ctx context.Context, collectionID string, queries []string, out any) error {
	return resilience.Protect(ctx, c.cb, c.cfg, func() error {
		v := url.Values{}
		for _, q := range queries {
			v.Add("queries[]", q)
		}
		rawURL := c.documentsPath(collectionID, "")
		if len(v) > 0 {
			rawURL += "?" + v.Encode()
		}

		body, err := c.doRequest(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		var envelope listEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to decode document list: %w", err)
		}
		return json.Unmarshal(envelope.Documents, out)
	})
}

// updateDocument PATCHes selected attributes of a document.
func (c *Client) updateDocument(ctx context.Context, collectionID, documentID string, data map[string]any) error {
	payload := map[string]any{"data": data}

	err := resilience.Protect(ctx, c.cb, c.cfg, func() error {
		_, err := c.doRequest(ctx, http.MethodPatch, c.documentsPath(collectionID, documentID), payload)
		return err
	})
	if err != nil {
		return err
	}

	c.publish(collectionID, documentID, "update")
	return nil
}

// deleteDocument removes a document.
func (c *Client) deleteDocument(ctx context.Context, collectionID, documentID string) error {
	err := resilience.Protect(ctx, c.cb, c.cfg, func() error {
		_, err := c.doRequest(ctx, http.MethodDelete, c.documentsPath(collectionID, documentID), nil)
		return err
	})
	if err != nil {
		return err
	}

	c.publish(collectionID, documentID, "delete")
	return nil
}

// publish mirrors a successful mutation onto the realtime bus.
func (c *Client) publish(collectionID, documentID, action string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(domain.RealtimeEvent{
		Collection: collectionID,
		Events: []string{
			fmt.Sprintf("databases.%s.collections.%s.documents.%s.%s", c.databaseID, collectionID, documentID, action),
		},
	})
}

// Appwrite query helpers (Query.equal / limit / offset / order syntax).

func queryEqual(attribute, value string) string {
	return fmt.Sprintf(`equal("%s", ["%s"])`, attribute, value)
}

func queryLimit(n int) string {
	return fmt.Sprintf("limit(%d)", n)
}

func queryOffset(n int) string {
	return fmt.Sprintf("offset(%d)", n)
}

func queryOrderDesc(attribute string) string {
	return fmt.Sprintf(`orderDesc("%s")`, attribute)
}

func queryBetween(attribute, from, to string) string {
	return fmt.Sprintf(`between("%s", "%s", "%s")`, attribute, from, to)
}
