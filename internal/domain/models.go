// Package domain holds the core data model for EchoEase: classified
// utterances and the records they fan out into (schedule, finance, mood,
// history), plus the derived structures the finance and schedule views
// are built from.
package domain

import "time"

// ============================================================
// Schedule
// ============================================================

// ScheduleType distinguishes calendar events from reminders.
type ScheduleType string

const (
	ScheduleEvent    ScheduleType = "event"
	ScheduleReminder ScheduleType = "reminder"
)

// ScheduleStatus is only meaningful for reminders. Empty means "no status"
// (events never carry one).
type ScheduleStatus string

const (
	StatusPending   ScheduleStatus = "pending"
	StatusCompleted ScheduleStatus = "completed"
)

// ScheduleRecord is a persisted calendar event or reminder.
// For events start_time is the date key; for reminders due_date is.
type ScheduleRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        ScheduleType   `json:"type"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	NotifyAt    *time.Time     `json:"notify_at,omitempty"`
	Status      ScheduleStatus `json:"status,omitempty"`
	HistoryID   string         `json:"history_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DateKey returns the calendar date this record buckets under and whether
// the record has one at all (records without the relevant date field are
// excluded from bucketed views).
func (r *ScheduleRecord) DateKey() (string, bool) {
	switch r.Type {
	case ScheduleEvent:
		if r.StartTime != nil {
			return r.StartTime.Local().Format("2006-01-02"), true
		}
	case ScheduleReminder:
		if r.DueDate != nil {
			return r.DueDate.Local().Format("2006-01-02"), true
		}
	}
	return "", false
}

// ============================================================
// Finance
// ============================================================

// FinanceCategory is uniquely keyed by name. Color is picked from a fixed
// palette when the category is lazily created.
type FinanceCategory struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// SpendingRecord is a single expense. Amount is kept as text to preserve
// decimal precision across the store and the display layer. Category is a
// soft name-reference: the lookup may miss if the category was deleted.
type SpendingRecord struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Amount    string     `json:"amount"`
	Date      *time.Time `json:"date,omitempty"`
	Category  string     `json:"category"`
	HistoryID string     `json:"history_id,omitempty"`
}

// ============================================================
// Mood
// ============================================================

// MoodLevel is one of five fixed levels.
type MoodLevel string

const (
	MoodTerrible MoodLevel = "terrible"
	MoodBad      MoodLevel = "bad"
	MoodOkay     MoodLevel = "okay"
	MoodGood     MoodLevel = "good"
	MoodGreat    MoodLevel = "great"
)

// ValidMoodLevel reports whether s is one of the five fixed levels.
func ValidMoodLevel(s string) bool {
	switch MoodLevel(s) {
	case MoodTerrible, MoodBad, MoodOkay, MoodGood, MoodGreat:
		return true
	}
	return false
}

// MoodRecord is one mood log entry. The weekly view assumes at most one
// per day; the creation path does not enforce it (last write wins).
type MoodRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Datetime    time.Time `json:"datetime"`
	MoodType    MoodLevel `json:"mood_type"`
	Description string    `json:"description"`
	HistoryID   string    `json:"history_id,omitempty"`
}

// ============================================================
// History
// ============================================================

// HistoryRecord is the anchor created first for every utterance. Derived
// records point back at it via history_id as a soft reference.
type HistoryRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	TranscribedText string    `json:"transcribed_text"`
	CreatedAt       time.Time `json:"created_at"`
}

// OtherRecord catches classified content that fits no tracking domain.
type OtherRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	HistoryID string `json:"history_id,omitempty"`
}

// ============================================================
// Classification result
// ============================================================

// CategorizedData is the structured result of one classified utterance.
// Immutable after creation. It is never persisted as a unit; its elements
// fan out into the individual stores.
type CategorizedData struct {
	Schedule []ScheduleItem `json:"schedule"`
	Finance  []FinanceItem  `json:"finance"`
	Mood     []MoodItem     `json:"mood"`
	Other    []OtherItem    `json:"other"`
}

// Empty reports whether the classification produced nothing at all.
func (d *CategorizedData) Empty() bool {
	return len(d.Schedule) == 0 && len(d.Finance) == 0 && len(d.Mood) == 0 && len(d.Other) == 0
}

// ScheduleItem is one extracted schedule entry. Timestamps arrive as
// RFC3339 strings from the extraction oracle; empty means absent.
type ScheduleItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	DueDate     string `json:"due_date"`
	NotifyAt    string `json:"notify_at"`
}

// FinanceItem is one extracted expense. Amount is a decimal string.
type FinanceItem struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// MoodItem is one extracted mood entry.
type MoodItem struct {
	Datetime    string `json:"datetime"`
	MoodType    string `json:"mood_type"`
	Description string `json:"description"`
}

// OtherItem is extracted content that matched no tracking domain.
type OtherItem struct {
	Content string `json:"content"`
}

// AudioCapture is a recorded utterance on local disk, exclusively owned
// by the capture flow until the transcription client releases it.
type AudioCapture struct {
	FilePath string
	MimeType string
}

// ============================================================
// Commit report
// ============================================================

// RecordResult is the outcome of one fan-out create.
type RecordResult struct {
	Kind  string `json:"kind"` // schedule | finance | mood | other | category
	Label string `json:"label"`
	Err   string `json:"error,omitempty"`
}

// OK reports whether the record was persisted.
func (r RecordResult) OK() bool { return r.Err == "" }

// CommitReport aggregates per-record outcomes of one utterance commit.
// Partial failure never aborts siblings, so the report is the only place
// individual failures surface.
type CommitReport struct {
	HistoryID string         `json:"history_id"`
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []RecordResult `json:"results"`
}

// Add records one result and updates the counters.
func (c *CommitReport) Add(res RecordResult) {
	c.Attempted++
	if res.OK() {
		c.Succeeded++
	} else {
		c.Failed++
	}
	c.Results = append(c.Results, res)
}

// ============================================================
// Derived finance aggregates
// ============================================================

// CategoryAggregate is a fully derived per-category rollup. Never
// persisted; recomputed whenever spending or categories change.
type CategoryAggregate struct {
	Category    string `json:"category"`
	TotalAmount string `json:"total_amount"`
	Percentage  string `json:"percentage"`
	Color       string `json:"color"`
	Focused     bool   `json:"focused"`
}

// DominantCategory is the category with the highest share of spending.
type DominantCategory struct {
	Category   string `json:"category"`
	Percentage string `json:"percentage"`
}

// ChartSlice is one chart-ready pie segment.
type ChartSlice struct {
	Value   float64 `json:"value"`
	Color   string  `json:"color"`
	Label   string  `json:"label"`
	Focused bool    `json:"focused"`
}

// FinanceSummary is the display-ready finance rollup.
type FinanceSummary struct {
	Total       float64             `json:"total"`
	PerCategory []CategoryAggregate `json:"per_category"`
	Dominant    DominantCategory    `json:"dominant"`
	ChartSeries []ChartSlice        `json:"chart_series"`
}

// ============================================================
// Derived mood week
// ============================================================

// MoodDay is one day of the weekly mood series. Mood is nil on days with
// no record.
type MoodDay struct {
	Date string      `json:"date"`
	Mood *MoodRecord `json:"mood,omitempty"`
}

// ============================================================
// Realtime feed
// ============================================================

// RealtimeEvent is one push notification from the store feed. Event
// names end in .create/.update/.delete. Consumers must treat it as an
// invalidate signal and refetch, never as an incremental patch.
type RealtimeEvent struct {
	Collection string    `json:"collection"`
	Events     []string  `json:"events"`
	Payload    any       `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ============================================================
// Pipeline metrics snapshot
// ============================================================

// PipelineStats is the snapshot served by GET /v1/metrics/pipeline.
type PipelineStats struct {
	TotalUtterances     int64   `json:"total_utterances"`
	ErrorRate           float64 `json:"error_rate"`
	RecordsCreated      int64   `json:"records_created"`
	RecordsFailed       int64   `json:"records_failed"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	Period              string  `json:"period"`
}
