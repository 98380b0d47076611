package appwrite

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// historyRow maps Appwrite document attributes for the history collection.
type historyRow struct {
	ID              string `json:"$id"`
	CreatedAt       string `json:"$createdAt"`
	UserID          string `json:"user_id"`
	TranscribedText string `json:"transcribed_text"`
}

func (r historyRow) toDomain() domain.HistoryRecord {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.HistoryRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		TranscribedText: r.TranscribedText,
		CreatedAt:       created,
	}
}

// CreateHistory persists the anchor record for one utterance.
func (c *Client) CreateHistory(ctx context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateHistory")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", rec.UserID))

	var row historyRow
	err := c.createDocument(ctx, c.collections.History, rec.ID, map[string]any{
		"user_id":          rec.UserID,
		"transcribed_text": rec.TranscribedText,
	}, &row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/history", Err: err}
	}

	created := row.toDomain()
	return &created, nil
}

// ListHistory fetches a user's utterance history, newest first.
func (c *Client) ListHistory(ctx context.Context, userID string, page, pageSize int) ([]domain.HistoryRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.ListHistory")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []historyRow
	err := c.listDocuments(ctx, c.collections.History, []string{
		queryEqual("user_id", userID),
		queryOrderDesc("$createdAt"),
		queryLimit(pageSize),
		queryOffset((page - 1) * pageSize),
	}, &rows)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/history", Err: err}
	}

	records := make([]domain.HistoryRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// DeleteHistory removes one history record. The userID guards against
// deleting another user's document.
func (c *Client) DeleteHistory(ctx context.Context, userID, historyID string) error {
	ctx, span := tracer.Start(ctx, "Appwrite.DeleteHistory")
	defer span.End()
	span.SetAttributes(attribute.String("history.id", historyID))

	var rows []historyRow
	err := c.listDocuments(ctx, c.collections.History, []string{
		queryEqual("$id", historyID),
		queryEqual("user_id", userID),
		queryLimit(1),
	}, &rows)
	if err != nil {
		return &domain.ErrExternalService{Service: "appwrite/history", Err: err}
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "history", ID: historyID}
	}

	if err := c.deleteDocument(ctx, c.collections.History, historyID); err != nil {
		return &domain.ErrExternalService{Service: "appwrite/history", Err: err}
	}
	return nil
}
