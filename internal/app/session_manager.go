package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"insightdocs-gateway/internal/model"
)

var (
	ErrSubmissionInFlight = errors.New("a query is already in flight")
	ErrFeedbackInFlight   = errors.New("feedback already in flight for this message")
	ErrMessageNotFound    = errors.New("message not found")
)

const (
	StateIdle       = "idle"
	StateSubmitting = "submitting"
)

// followThreshold is how close to the bottom, in display units, the view may
// drift before it stops tracking new messages.
const followThreshold = 50

// QueryRunner is the pipeline surface the manager drives.
type QueryRunner interface {
	Run(ctx context.Context, scope, query string) (*model.Message, error)
}

// FeedbackSubmitter reports one judgment upstream.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, msg model.Message, positive bool) error
}

// HistoryStore persists the per-scope message sequence.
type HistoryStore interface {
	Load(ctx context.Context, scopeKey string) (model.Session, error)
	Save(ctx context.Context, scopeKey string, messages []model.Message) error
	Clear(ctx context.Context, scopeKey string) error
}

// ArchivePublisher hands completed exchanges to the archive queue. May be
// nil when archiving is disabled.
type ArchivePublisher interface {
	Publish(ctx context.Context, rec model.ExchangeRecord) error
}

// ViewState is a snapshot of everything a renderer needs for one scope.
type ViewState struct {
	Scope        string          `json:"scope"`
	State        string          `json:"state"`
	Error        string          `json:"error,omitempty"`
	FollowLatest bool            `json:"follow_latest"`
	Messages     []model.Message `json:"messages"`
}

// SessionManager owns the ordered history for one conversational scope. At
// most one query is in flight at a time: submissions while submitting are
// rejected, not queued. Submitting is the only transient state and is always
// exited when the pipeline settles, whatever the outcome.
type SessionManager struct {
	scope    string
	runner   QueryRunner
	feedback FeedbackSubmitter
	store    HistoryStore
	archive  ArchivePublisher

	mu           sync.Mutex
	state        string
	messages     []model.Message
	lastError    string
	followLatest bool
	feedbackBusy map[string]bool
}

func NewSessionManager(
	scope string,
	runner QueryRunner,
	feedback FeedbackSubmitter,
	store HistoryStore,
	archive ArchivePublisher,
) *SessionManager {
	return &SessionManager{
		scope:        scope,
		runner:       runner,
		feedback:     feedback,
		store:        store,
		archive:      archive,
		state:        StateIdle,
		followLatest: true,
		feedbackBusy: make(map[string]bool),
	}
}

// Restore populates the in-memory history from the store. A load failure
// starts the session empty; it never blocks the session from opening.
func (m *SessionManager) Restore(ctx context.Context) {
	session, err := m.store.Load(ctx, m.scope)
	if err != nil {
		log.Printf("restore session %q failed, starting empty: %v", m.scope, err)
		session.Messages = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = session.Messages
	m.followLatest = true
}

// Submit runs one query through the pipeline. On success the returned
// message is appended to history and persisted; on failure the error text is
// kept for display and history is untouched. Either way the session is back
// to idle when Submit returns.
func (m *SessionManager) Submit(ctx context.Context, query string) (*model.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	m.mu.Lock()
	if m.state == StateSubmitting {
		m.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	m.state = StateSubmitting
	m.lastError = ""
	m.mu.Unlock()

	msg, err := m.runner.Run(ctx, m.scope, query)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	if err != nil {
		m.lastError = err.Error()
		return nil, err
	}

	m.messages = append(m.messages, *msg)
	m.persistLocked(ctx)
	m.publishLocked(ctx, *msg)
	return msg, nil
}

// SubmitFeedback records a judgment for one message. Re-submitting the
// already-confirmed judgment is a no-op with no network call. Local state
// changes only after the recorder confirms; a failed submission leaves the
// prior confirmed value in place.
func (m *SessionManager) SubmitFeedback(ctx context.Context, messageID string, positive bool) error {
	verdict := model.FeedbackNegative
	if positive {
		verdict = model.FeedbackPositive
	}

	m.mu.Lock()
	idx := m.indexOfLocked(messageID)
	if idx < 0 {
		m.mu.Unlock()
		return ErrMessageNotFound
	}
	if m.messages[idx].Feedback == verdict {
		m.mu.Unlock()
		return nil
	}
	if m.feedbackBusy[messageID] {
		m.mu.Unlock()
		return ErrFeedbackInFlight
	}
	m.feedbackBusy[messageID] = true
	msg := m.messages[idx]
	m.mu.Unlock()

	err := m.feedback.Submit(ctx, msg, positive)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feedbackBusy, messageID)
	if err != nil {
		return err
	}

	if idx := m.indexOfLocked(messageID); idx >= 0 {
		m.messages[idx].Feedback = verdict
		m.persistLocked(ctx)
		m.publishLocked(ctx, m.messages[idx])
	}
	return nil
}

// Clear empties the history and removes its durable entry.
func (m *SessionManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
	m.lastError = ""
	return m.store.Clear(ctx, m.scope)
}

// RecordScroll updates the follow-latest flag from a scroll event; the view
// keeps tracking new messages only while it sits near the bottom.
func (m *SessionManager) RecordScroll(distanceFromBottom float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followLatest = distanceFromBottom <= followThreshold
}

// View returns a self-contained snapshot for rendering.
func (m *SessionManager) View() ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]model.Message, len(m.messages))
	copy(messages, m.messages)
	return ViewState{
		Scope:        m.scope,
		State:        m.state,
		Error:        m.lastError,
		FollowLatest: m.followLatest,
		Messages:     messages,
	}
}

// History returns a copy of the current message sequence.
func (m *SessionManager) History() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]model.Message, len(m.messages))
	copy(messages, m.messages)
	return messages
}

func (m *SessionManager) indexOfLocked(messageID string) int {
	for i := range m.messages {
		if m.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// persistLocked writes the whole history after a mutation. The write is
// fire-and-forget: a storage hiccup is logged, not surfaced, and the next
// mutation overwrites with the full latest state anyway.
func (m *SessionManager) persistLocked(ctx context.Context) {
	if err := m.store.Save(ctx, m.scope, m.messages); err != nil {
		log.Printf("persist session %q failed: %v", m.scope, err)
	}
}

func (m *SessionManager) publishLocked(ctx context.Context, msg model.Message) {
	if m.archive == nil {
		return
	}
	if err := m.archive.Publish(ctx, model.ExchangeRecordFromMessage(m.scope, msg)); err != nil {
		log.Printf("publish exchange %q to archive failed: %v", msg.ID, err)
	}
}
