package interview

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
)

const (
	DefaultReason       = "interview_completed"
	DefaultTaskType     = "repeat"
	DefaultQuestionType = "interview"
	DefaultResponseType = "voice"

	maxIDAttempts = 5
)

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func(at time.Time) string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithRetention sets how long completed sessions remain readable.
func WithRetention(window time.Duration) Option {
	return func(s *Service) {
		s.retentionWindow = window
	}
}

// WithSubscriberBuffer sets the per-subscriber event buffer.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		s.subscriberBuffer = n
	}
}

// Service owns the interview sessions of this process: it creates them,
// records the avatar prompts and candidate responses, terminates them and
// retires them after the retention window.
type Service struct {
	store     *Store
	retention *Retention
	hub       *Hub

	now              func() time.Time
	newID            func(at time.Time) string
	retentionWindow  time.Duration
	subscriberBuffer int
}

// NewService bootstraps the in-memory interview service.
func NewService(opts ...Option) *Service {
	s := &Service{
		store:           NewStore(),
		now:             time.Now,
		newID:           NewSessionID,
		retentionWindow: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.subscriberBuffer)
	s.retention = NewRetention(s.retentionWindow, s.evict)
	return s
}

// NewSessionID returns "interview_<unix ms>_<random>".
func NewSessionID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("interview_%d_%s", at.UnixMilli(), suffix)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Create provisions a new session in the created state.
func (s *Service) Create(_ context.Context, cfg model.Config) (model.Session, error) {
	at := s.clock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		rec := newRecord(s.newID(at), cfg, at)
		if !s.store.insert(rec) {
			log.Printf("[session] id collision on %s, regenerating", rec.id)
			continue
		}

		rec.mu.RLock()
		snapshot := rec.snapshot()
		rec.mu.RUnlock()

		log.Printf("[session] created %s avatar=%s language=%s", rec.id, cfg.AvatarID, cfg.Language)
		return snapshot, nil
	}

	return model.Session{}, NewError(KindInternal, "could not allocate a unique session id")
}

// RecordPrompt appends an avatar prompt and makes it the pending question.
func (s *Service) RecordPrompt(ctx context.Context, sessionID, text string, details model.PromptDetails) (model.Entry, error) {
	entry, _, err := s.RecordPromptSnapshot(ctx, sessionID, text, details)
	return entry, err
}

// RecordPromptSnapshot is RecordPrompt that also returns the session as it
// was right after the prompt was committed.
func (s *Service) RecordPromptSnapshot(_ context.Context, sessionID, text string, details model.PromptDetails) (model.Entry, model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Entry{}, model.Session{}, NewError(KindInvalidInput, "sessionId is required")
	}
	if strings.TrimSpace(text) == "" {
		return model.Entry{}, model.Session{}, NewError(KindInvalidInput, "text is required")
	}
	if details.TaskType == "" {
		details.TaskType = DefaultTaskType
	}
	if details.QuestionType == "" {
		details.QuestionType = DefaultQuestionType
	}

	rec, ok := s.store.lookup(sessionID)
	if !ok {
		return model.Entry{}, model.Session{}, notFound(sessionID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next, err := nextStatus(rec.status, triggerPrompt)
	if err != nil {
		return model.Entry{}, model.Session{}, err
	}

	at := rec.stamp(s.clock())
	entry := model.NewPrompt(text, details, at)
	entry.Sequence = len(rec.transcript) + 1
	rec.transcript = append(rec.transcript, entry)
	rec.current = len(rec.transcript) - 1
	prev := rec.status
	rec.status = next
	rec.lastActivity = at

	s.publishEntry(sessionID, entry, prev, next)
	return entry.Clone(), rec.snapshot(), nil
}

// RecordResponse appends a candidate response, correlating it with the
// pending prompt if there is one. Empty text is stored as a placeholder.
func (s *Service) RecordResponse(ctx context.Context, sessionID, text string, details model.ResponseDetails) (model.Entry, error) {
	entry, _, err := s.RecordResponseSnapshot(ctx, sessionID, text, details)
	return entry, err
}

// RecordResponseSnapshot is RecordResponse that also returns the session as
// it was right after the response was committed.
func (s *Service) RecordResponseSnapshot(_ context.Context, sessionID, text string, details model.ResponseDetails) (model.Entry, model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Entry{}, model.Session{}, NewError(KindInvalidInput, "sessionId is required")
	}
	if details.ResponseType == "" {
		details.ResponseType = DefaultResponseType
	}

	rec, ok := s.store.lookup(sessionID)
	if !ok {
		return model.Entry{}, model.Session{}, notFound(sessionID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next, err := nextStatus(rec.status, triggerResponse)
	if err != nil {
		return model.Entry{}, model.Session{}, err
	}

	at := rec.stamp(s.clock())
	// The caller keeps its pointers; the stored entry gets its own.
	entry := model.NewResponse(strings.TrimSpace(text), details, at).Clone()
	entry.Sequence = len(rec.transcript) + 1
	if rec.current >= 0 {
		prompt := rec.transcript[rec.current]
		ts := prompt.Timestamp
		entry.CorrelatedPromptTimestamp = &ts
		entry.CorrelatedPromptSequence = prompt.Sequence
	}
	rec.transcript = append(rec.transcript, entry)
	rec.responses = append(rec.responses, entry)
	rec.lastResponse = len(rec.transcript) - 1
	prev := rec.status
	rec.status = next
	rec.lastActivity = at

	s.publishEntry(sessionID, entry, prev, next)
	return entry.Clone(), rec.snapshot(), nil
}

// Terminate completes the session, freezes its results and schedules its
// eviction. A session can only be terminated once.
func (s *Service) Terminate(_ context.Context, sessionID, reason string) (model.Results, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Results{}, NewError(KindInvalidInput, "sessionId is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}

	rec, ok := s.store.lookup(sessionID)
	if !ok {
		return model.Results{}, notFound(sessionID)
	}

	rec.mu.Lock()
	next, err := nextStatus(rec.status, triggerTerminate)
	if err != nil {
		rec.mu.Unlock()
		return model.Results{}, err
	}

	at := rec.stamp(s.clock())
	rec.endedAt = at
	rec.lastActivity = at
	rec.reason = reason
	results := computeResults(rec, reason)
	rec.results = &results
	rec.status = next
	// Hub delivery is non-blocking, so publishing under the record lock
	// keeps events in commit order.
	s.hub.Publish(model.Event{
		Type:      model.EventEnded,
		SessionID: sessionID,
		Status:    next,
		Results:   &results,
		At:        at,
	})
	rec.mu.Unlock()

	if !s.retention.Schedule(sessionID) {
		log.Printf("[session] retention closed, %s will stay until shutdown", sessionID)
	}

	log.Printf("[session] %s completed reason=%s prompts=%d responses=%d duration=%s",
		sessionID, reason, results.Statistics.TotalPrompts, results.Statistics.TotalResponses, results.Duration.Formatted)

	return results.Clone(), nil
}

// Get returns a snapshot of the session.
func (s *Service) Get(_ context.Context, sessionID string) (model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Session{}, NewError(KindInvalidInput, "sessionId is required")
	}
	rec, ok := s.store.lookup(sessionID)
	if !ok {
		return model.Session{}, notFound(sessionID)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.snapshot(), nil
}

// Results returns the frozen results of a completed session.
func (s *Service) Results(_ context.Context, sessionID string) (model.Results, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Results{}, NewError(KindInvalidInput, "sessionId is required")
	}
	rec, ok := s.store.lookup(sessionID)
	if !ok {
		return model.Results{}, notFound(sessionID)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if rec.results == nil {
		return model.Results{}, NewError(KindInvalidInput, "session is not completed yet")
	}
	return rec.results.Clone(), nil
}

// List returns a summary of every stored session, oldest first.
func (s *Service) List(_ context.Context) []model.Summary {
	return s.store.summaries()
}

// Subscribe streams the events of an existing session. The subscription is
// registered before the session is looked up: eviction removes the record
// before closing its subscriptions, so a subscription that finds the record
// is always closed by a later eviction.
func (s *Service) Subscribe(_ context.Context, sessionID string) (<-chan model.Event, func(), error) {
	ch, cancel := s.hub.Subscribe(sessionID)
	if _, ok := s.store.lookup(sessionID); !ok {
		cancel()
		return nil, nil, notFound(sessionID)
	}
	return ch, cancel, nil
}

// Len returns the number of sessions held in memory.
func (s *Service) Len() int {
	return s.store.Len()
}

// PendingEvictions returns the number of completed sessions waiting for
// their retention window to pass.
func (s *Service) PendingEvictions() int {
	return s.retention.Pending()
}

// Subscribers returns the number of live subscriptions of sessionID.
func (s *Service) Subscribers(sessionID string) int {
	return s.hub.Subscribers(sessionID)
}

// RetentionWindow reports how long completed sessions stay readable.
func (s *Service) RetentionWindow() time.Duration {
	return s.retention.Window()
}

// Close cancels pending evictions and ends all live subscriptions.
func (s *Service) Close() {
	stopped := s.retention.Close()
	s.hub.Close()
	log.Printf("[session] shutdown cancelled %d pending cleanups", stopped)
}

func (s *Service) evict(id string) bool {
	removed := s.store.remove(id)
	s.hub.CloseSession(id)
	return removed
}

// publishEntry runs under the record lock so that subscribers see events
// in the order they were committed.
func (s *Service) publishEntry(sessionID string, entry model.Entry, prev, next model.Status) {
	s.hub.Publish(model.Event{
		Type:      model.EventEntry,
		SessionID: sessionID,
		Status:    next,
		Entry:     &entry,
		At:        entry.Timestamp,
	})
	if prev != next {
		s.hub.Publish(model.Event{
			Type:      model.EventStatus,
			SessionID: sessionID,
			Status:    next,
			At:        entry.Timestamp,
		})
	}
}

func notFound(sessionID string) error {
	return Wrap(KindNotFound, "session not found", fmt.Errorf("unknown session id %q", sessionID))
}
