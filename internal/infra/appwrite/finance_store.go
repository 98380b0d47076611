package appwrite

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// categoryRow maps Appwrite document attributes for finance categories.
type categoryRow struct {
	ID     string `json:"$id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

func (r categoryRow) toDomain() domain.FinanceCategory {
	return domain.FinanceCategory{
		ID:     r.ID,
		UserID: r.UserID,
		Name:   r.Name,
		Color:  r.Color,
	}
}

// spendingRow maps Appwrite document attributes for spending records.
// Amount stays a string end to end.
type spendingRow struct {
	ID        string `json:"$id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	HistoryID string `json:"history_id"`
}

func (r spendingRow) toDomain() domain.SpendingRecord {
	return domain.SpendingRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Amount:    r.Amount,
		Date:      parseTimePtr(r.Date),
		Category:  r.Category,
		HistoryID: r.HistoryID,
	}
}

// ListCategories fetches all finance categories for a user.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]domain.FinanceCategory, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []categoryRow
	err := c.listDocuments(ctx, c.collections.Categories, []string{
		queryEqual("user_id", userID),
		queryLimit(100),
	}, &rows)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/categories", Err: err}
	}

	categories := make([]domain.FinanceCategory, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, r.toDomain())
	}
	return categories, nil
}

// CreateCategory persists one lazily created finance category.
func (c *Client) CreateCategory(ctx context.Context, cat *domain.FinanceCategory) (*domain.FinanceCategory, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category.name", cat.Name))

	var row categoryRow
	err := c.createDocument(ctx, c.collections.Categories, cat.ID, map[string]any{
		"user_id": cat.UserID,
		"name":    cat.Name,
		"color":   cat.Color,
	}, &row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/categories", Err: err}
	}

	created := row.toDomain()
	return &created, nil
}

// ListSpending fetches all spending records for a user, newest first.
func (c *Client) ListSpending(ctx context.Context, userID string) ([]domain.SpendingRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.ListSpending")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []spendingRow
	err := c.listDocuments(ctx, c.collections.Spending, []string{
		queryEqual("user_id", userID),
		queryOrderDesc("date"),
		queryLimit(500),
	}, &rows)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/spending", Err: err}
	}

	records := make([]domain.SpendingRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// CreateSpending persists one spending record.
func (c *Client) CreateSpending(ctx context.Context, rec *domain.SpendingRecord) (*domain.SpendingRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateSpending")
	defer span.End()
	span.SetAttributes(attribute.String("spending.category", rec.Category))

	date := any(nil)
	if rec.Date != nil {
		date = rec.Date.UTC().Format(time.RFC3339)
	}

	var row spendingRow
	err := c.createDocument(ctx, c.collections.Spending, rec.ID, map[string]any{
		"user_id":    rec.UserID,
		"name":       rec.Name,
		"amount":     rec.Amount,
		"date":       date,
		"category":   rec.Category,
		"history_id": rec.HistoryID,
	}, &row)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/spending", Err: err}
	}

	created := row.toDomain()
	return &created, nil
}
