package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/pipeline")

// Refresh channels the orchestrator publishes on after a commit. Views
// subscribe to these instead of registering global callbacks.
const (
	RefreshSchedule = "refresh.schedule"
	RefreshMood     = "refresh.mood"
)

// Pipeline orchestrates one utterance end to end: transcription,
// classification, the history anchor, and the persistence fan-out.
type Pipeline struct {
	transcriber    port.Transcriber
	classifier     port.Classifier
	store          port.RecordStore
	finance        *FinanceService
	bus            port.EventBus
	metrics        metricsRecorder
	logger         *zap.Logger
	maxConcurrency int
}

// NewPipeline creates the pipeline with all dependencies injected.
func NewPipeline(
	transcriber port.Transcriber,
	classifier port.Classifier,
	store port.RecordStore,
	finance *FinanceService,
	bus port.EventBus,
	metrics metricsRecorder,
	logger *zap.Logger,
	maxConcurrency int,
) *Pipeline {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Pipeline{
		transcriber:    transcriber,
		classifier:     classifier,
		store:          store,
		finance:        finance,
		bus:            bus,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// HandleAudio transcribes a captured utterance and hands the transcript
// to HandleText. The capture is released by the transcriber on every
// path. An empty transcript is a soft failure: nothing was heard, so
// nothing is classified or persisted.
func (p *Pipeline) HandleAudio(ctx context.Context, userID string, capture *domain.AudioCapture) (*domain.CommitReport, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.HandleAudio")
	defer span.End()

	text, err := p.transcriber.Transcribe(ctx, capture)
	if err != nil {
		p.metrics.IncrUtterance("error")
		p.logger.Error("transcription failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		p.metrics.IncrUtterance("error")
		return nil, &domain.ErrValidation{Field: "transcript", Message: "nothing was transcribed"}
	}

	return p.HandleText(ctx, userID, text)
}

// HandleText classifies free-form text and fans the result out to the
// stores. Classification and the history anchor are fatal steps; every
// fan-out failure is isolated in the report.
func (p *Pipeline) HandleText(ctx context.Context, userID, text string) (*domain.CommitReport, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.HandleText")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if strings.TrimSpace(text) == "" {
		p.metrics.IncrUtterance("error")
		return nil, &domain.ErrValidation{Field: "text", Message: "required"}
	}

	known, err := p.finance.KnownCategories(ctx, userID)
	if err != nil {
		// Classification degrades gracefully without category context.
		p.logger.Warn("could not list known categories", zap.String("user_id", userID), zap.Error(err))
		known = nil
	}
	knownNames := make([]string, 0, len(known))
	for _, cat := range known {
		knownNames = append(knownNames, cat.Name)
	}

	data, err := p.classifier.Classify(ctx, text, knownNames)
	if err != nil {
		p.metrics.IncrUtterance("error")
		p.logger.Error("classification failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	// The history anchor is created and awaited before any fan-out;
	// every downstream record depends on its id.
	anchor, err := p.store.CreateHistory(ctx, &domain.HistoryRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		TranscribedText: text,
	})
	if err != nil {
		p.metrics.IncrUtterance("error")
		p.logger.Error("history anchor creation failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	report := p.Commit(ctx, data, anchor.ID, userID)
	p.metrics.IncrUtterance("success")
	return report, nil
}

// Commit fans one classification result out to the stores. Records run
// independently: a failure never cancels or aborts siblings, and partial
// failure is reported, not raised. At most one refresh event per lane is
// published after everything joins.
func (p *Pipeline) Commit(ctx context.Context, data *domain.CategorizedData, historyID, userID string) *domain.CommitReport {
	ctx, span := tracer.Start(ctx, "Pipeline.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("history.id", historyID))

	start := time.Now()
	defer func() {
		p.metrics.RecordRequestDuration("commit", time.Since(start))
	}()

	report := &domain.CommitReport{HistoryID: historyID, Results: []domain.RecordResult{}}
	var mu sync.Mutex
	var scheduleOK, moodOK bool

	add := func(res domain.RecordResult) {
		status := "success"
		if !res.OK() {
			status = "error"
		}
		p.metrics.IncrRecord(res.Kind, status)

		mu.Lock()
		defer mu.Unlock()
		report.Add(res)
		if res.OK() {
			switch res.Kind {
			case "schedule":
				scheduleOK = true
			case "mood":
				moodOK = true
			}
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(p.maxConcurrency)

	// Schedule lane: one concurrent create per item.
	for _, item := range data.Schedule {
		item := item
		g.Go(func() error {
			rec := buildScheduleRecord(item, historyID, userID)
			if _, err := p.store.CreateSchedule(ctx, rec); err != nil {
				p.logger.Warn("schedule record failed",
					zap.String("title", item.Title),
					zap.Error(err),
				)
				add(domain.RecordResult{Kind: "schedule", Label: item.Title, Err: err.Error()})
				return nil
			}
			add(domain.RecordResult{Kind: "schedule", Label: item.Title})
			return nil
		})
	}

	// Mood lane: sequential; a failure is logged and never blocks the
	// items after it.
	g.Go(func() error {
		for _, item := range data.Mood {
			rec := buildMoodRecord(item, historyID, userID)
			if _, err := p.store.CreateMood(ctx, rec); err != nil {
				p.logger.Warn("mood record failed",
					zap.String("mood_type", item.MoodType),
					zap.Error(err),
				)
				add(domain.RecordResult{Kind: "mood", Label: item.MoodType, Err: err.Error()})
				continue
			}
			add(domain.RecordResult{Kind: "mood", Label: item.MoodType})
		}
		return nil
	})

	// Finance lane: category creates precede the spending creates that
	// depend on them. All items in the batch are persisted, not just the
	// first.
	g.Go(func() error {
		p.commitFinance(ctx, data.Finance, historyID, userID, add)
		return nil
	})

	// Catch-all lane.
	g.Go(func() error {
		for _, item := range data.Other {
			rec := &domain.OtherRecord{
				ID:        uuid.NewString(),
				UserID:    userID,
				Content:   item.Content,
				HistoryID: historyID,
			}
			if _, err := p.store.CreateOther(ctx, rec); err != nil {
				p.logger.Warn("other record failed", zap.Error(err))
				add(domain.RecordResult{Kind: "other", Label: item.Content, Err: err.Error()})
				continue
			}
			add(domain.RecordResult{Kind: "other", Label: item.Content})
		}
		return nil
	})

	// Join every lane before reporting; completion order is unspecified.
	_ = g.Wait()

	if p.bus != nil {
		if scheduleOK {
			p.bus.Publish(domain.RealtimeEvent{Collection: RefreshSchedule, Events: []string{"refresh"}})
		}
		if moodOK {
			p.bus.Publish(domain.RealtimeEvent{Collection: RefreshMood, Events: []string{"refresh"}})
		}
	}

	return report
}

// commitFinance resolves unknown categories for the whole batch, creates
// them first, then creates each spending record. A spending record whose
// category failed to create fails with that reason.
func (p *Pipeline) commitFinance(ctx context.Context, items []domain.FinanceItem, historyID, userID string, add func(domain.RecordResult)) {
	if len(items) == 0 {
		return
	}

	known, err := p.finance.KnownCategories(ctx, userID)
	if err != nil {
		p.logger.Warn("finance lane: category list unavailable", zap.Error(err))
		known = nil
	}

	resolution := ResolveCategories(items, known)

	failedCategories := make(map[string]string)
	for _, cat := range resolution.ToCreate {
		cat.ID = uuid.NewString()
		cat.UserID = userID
		if _, err := p.store.CreateCategory(ctx, &cat); err != nil {
			p.logger.Warn("category creation failed",
				zap.String("category", cat.Name),
				zap.Error(err),
			)
			failedCategories[cat.Name] = err.Error()
			add(domain.RecordResult{Kind: "category", Label: cat.Name, Err: err.Error()})
			continue
		}
		add(domain.RecordResult{Kind: "category", Label: cat.Name})
	}
	if len(resolution.ToCreate) > 0 {
		p.finance.InvalidateCategories(userID)
	}

	for _, item := range resolution.Resolved {
		if reason, failed := failedCategories[item.Category]; failed {
			add(domain.RecordResult{Kind: "finance", Label: item.Name, Err: "category unavailable: " + reason})
			continue
		}

		rec := &domain.SpendingRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      item.Name,
			Amount:    item.Amount,
			Date:      parseOracleTime(item.Date),
			Category:  item.Category,
			HistoryID: historyID,
		}
		if _, err := p.store.CreateSpending(ctx, rec); err != nil {
			p.logger.Warn("spending record failed",
				zap.String("name", item.Name),
				zap.Error(err),
			)
			add(domain.RecordResult{Kind: "finance", Label: item.Name, Err: err.Error()})
			continue
		}
		add(domain.RecordResult{Kind: "finance", Label: item.Name})
	}
}

// parseOracleTime accepts RFC3339 or a bare date; anything else is absent.
func parseOracleTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

func buildScheduleRecord(item domain.ScheduleItem, historyID, userID string) *domain.ScheduleRecord {
	rec := &domain.ScheduleRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       item.Title,
		Description: item.Description,
		Type:        domain.ScheduleType(item.Type),
		StartTime:   parseOracleTime(item.StartTime),
		EndTime:     parseOracleTime(item.EndTime),
		DueDate:     parseOracleTime(item.DueDate),
		NotifyAt:    parseOracleTime(item.NotifyAt),
		HistoryID:   historyID,
	}
	if rec.Type == domain.ScheduleReminder {
		rec.Status = domain.StatusPending
	}
	return rec
}

func buildMoodRecord(item domain.MoodItem, historyID, userID string) *domain.MoodRecord {
	datetime := time.Now()
	if t := parseOracleTime(item.Datetime); t != nil {
		datetime = *t
	}
	return &domain.MoodRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Datetime:    datetime,
		MoodType:    domain.MoodLevel(item.MoodType),
		Description: item.Description,
		HistoryID:   historyID,
	}
}
