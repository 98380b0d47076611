package appwrite

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// moodRow maps Appwrite document attributes for mood records.
type moodRow struct {
	ID          string `json:"$id"`
	UserID      string `json:"user_id"`
	Datetime    string `json:"datetime"`
	MoodType    string `json:"mood_type"`
	Description string `json:"description"`
	HistoryID   string `json:"history_id"`
}

func (r moodRow) toDomain() domain.MoodRecord {
	dt, _ := time.Parse(time.RFC3339, r.Datetime)
	return domain.MoodRecord{
		ID:          r.ID,
		UserID:      r.UserID,
		Datetime:    dt,
		MoodType:    domain.MoodLevel(r.MoodType),
		Description: r.Description,
		HistoryID:   r.HistoryID,
	}
}

// CreateMood persists one mood record. No per-day uniqueness is enforced;
// the weekly view resolves duplicates by last write wins.
func (c *Client) CreateMood(ctx context.Context, rec *domain.MoodRecord) (*domain.MoodRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateMood")
	defer span.End()
	span.SetAttributes(attribute.String("mood.type", string(rec.MoodType)))

	var row moodRow
	err := c.createDocument(ctx, c.collections.Mood, rec.ID, map[string]any{
		"user_id":     rec.UserID,
		"datetime":    rec.Datetime.UTC().Format(time.RFC3339),
		"mood_type":   string(rec.MoodType),
		"description": rec.Description,
		"history_id":  rec.HistoryID,
	}, &row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/mood", Err: err}
	}

	created := row.toDomain()
	return &created, nil
}

// ListMoods fetches mood records in the [from, to] window.
func (c *Client) ListMoods(ctx context.Context, userID string, from, to time.Time) ([]domain.MoodRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.ListMoods")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []moodRow
	err := c.listDocuments(ctx, c.collections.Mood, []string{
		queryEqual("user_id", userID),
		queryBetween("datetime", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)),
		queryLimit(100),
	}, &rows)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/mood", Err: err}
	}

	records := make([]domain.MoodRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// otherRow maps Appwrite document attributes for the catch-all collection.
type otherRow struct {
	ID        string `json:"$id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	HistoryID string `json:"history_id"`
}

// CreateOther persists classified content that fits no tracking domain.
func (c *Client) CreateOther(ctx context.Context, rec *domain.OtherRecord) (*domain.OtherRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateOther")
	defer span.End()

	var row otherRow
	err := c.createDocument(ctx, c.collections.Other, rec.ID, map[string]any{
		"user_id":    rec.UserID,
		"content":    rec.Content,
		"history_id": rec.HistoryID,
	}, &row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/other", Err: err}
	}

	return &domain.OtherRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		Content:   row.Content,
		HistoryID: row.HistoryID,
	}, nil
}
