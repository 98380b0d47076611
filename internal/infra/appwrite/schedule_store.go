package appwrite

import (
	"context"
	"time"

	"github.com/echoease/echoease-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// scheduleRow maps Appwrite document attributes for the schedule collection.
// Datetime attributes are RFC3339 strings; empty means absent.
type scheduleRow struct {
	ID          string `json:"$id"`
	CreatedAt   string `json:"$createdAt"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	DueDate     string `json:"due_date"`
	NotifyAt    string `json:"notify_at"`
	Status      string `json:"status"`
	HistoryID   string `json:"history_id"`
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (r scheduleRow) toDomain() domain.ScheduleRecord {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.ScheduleRecord{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Type:        domain.ScheduleType(r.Type),
		StartTime:   parseTimePtr(r.StartTime),
		EndTime:     parseTimePtr(r.EndTime),
		DueDate:     parseTimePtr(r.DueDate),
		NotifyAt:    parseTimePtr(r.NotifyAt),
		Status:      domain.ScheduleStatus(r.Status),
		HistoryID:   r.HistoryID,
		CreatedAt:   created,
	}
}

// CreateSchedule persists one event or reminder. Absent optional dates are
// stored as null.
func (c *Client) CreateSchedule(ctx context.Context, rec *domain.ScheduleRecord) (*domain.ScheduleRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.CreateSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.type", string(rec.Type)))

	data := map[string]any{
		"user_id":     rec.UserID,
		"title":       rec.Title,
		"description": rec.Description,
		"type":        string(rec.Type),
		"start_time":  formatTimePtr(rec.StartTime),
		"end_time":    formatTimePtr(rec.EndTime),
		"due_date":    formatTimePtr(rec.DueDate),
		"notify_at":   formatTimePtr(rec.NotifyAt),
		"history_id":  rec.HistoryID,
	}
	if rec.Status != "" {
		data["status"] = string(rec.Status)
	}

	var row scheduleRow
	if err := c.createDocument(ctx, c.collections.Schedule, rec.ID, data, &row); err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/schedule", Err: err}
	}

	created := row.toDomain()
	return &created, nil
}

// ListSchedules fetches a user's schedule records. The date window is
// applied by the caller: events key on start_time, reminders on due_date,
// so no single attribute filter covers both.
func (c *Client) ListSchedules(ctx context.Context, userID string, _, _ time.Time) ([]domain.ScheduleRecord, error) {
	ctx, span := tracer.Start(ctx, "Appwrite.ListSchedules")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	queries := []string{queryEqual("user_id", userID), queryLimit(500)}

	var rows []scheduleRow
	if err := c.listDocuments(ctx, c.collections.Schedule, queries, &rows); err != nil {
		return nil, &domain.ErrExternalService{Service: "appwrite/schedule", Err: err}
	}

	records := make([]domain.ScheduleRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toDomain())
	}
	return records, nil
}

// UpdateScheduleStatus flips a reminder's completion status.
func (c *Client) UpdateScheduleStatus(ctx context.Context, scheduleID string, status domain.ScheduleStatus) error {
	ctx, span := tracer.Start(ctx, "Appwrite.UpdateScheduleStatus")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.id", scheduleID))

	err := c.updateDocument(ctx, c.collections.Schedule, scheduleID, map[string]any{
		"status": string(status),
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "appwrite/schedule", Err: err}
	}
	return nil
}

// DeleteSchedule removes one schedule record.
func (c *Client) DeleteSchedule(ctx context.Context, userID, scheduleID string) error {
	ctx, span := tracer.Start(ctx, "Appwrite.DeleteSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.id", scheduleID))

	var rows []scheduleRow
	err := c.listDocuments(ctx, c.collections.Schedule, []string{
		queryEqual("$id", scheduleID),
		queryEqual("user_id", userID),
		queryLimit(1),
	}, &rows)
	if err != nil {
		return &domain.ErrExternalService{Service: "appwrite/schedule", Err: err}
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "schedule", ID: scheduleID}
	}

	if err := c.deleteDocument(ctx, c.collections.Schedule, scheduleID); err != nil {
		return &domain.ErrExternalService{Service: "appwrite/schedule", Err: err}
	}
	return nil
}
