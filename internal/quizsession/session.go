package quizsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

const (
	SessionIDKey     = "quiz_session_id"
	sessionKeyPrefix = "quiz_session_"
	resultsKeyPrefix = "quiz_results_"

	DefaultDebounce = 100 * time.Millisecond
)

func SessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }
func ResultsKey(sessionID string) string { return resultsKeyPrefix + sessionID }

// Envelope is the persisted snapshot of an in-progress quiz.
type Envelope struct {
	QuizID               quiz.ID                 `json:"quizId"`
	QuizType             string                  `json:"quizType"`
	Answers              map[quiz.ID]quiz.Answer `json:"answers"`
	CurrentQuestionIndex int                     `json:"currentQuestionIndex"`
	IsCompleted          bool                    `json:"isCompleted"`
	Title                string                  `json:"title"`
	LastSaved            int64                   `json:"lastSaved"` // unix millis
	Version              int64                   `json:"version"`
}

// Meta carries the envelope fields that are not answers.
type Meta struct {
	CurrentQuestionIndex int
	IsCompleted          bool
	Title                string
}

type pendingSave struct {
	timer *time.Timer
	env   Envelope
	gen   uint64
}

// Manager persists quiz sessions. Saves are debounced per session key:
// each call within the window replaces the pending envelope and restarts
// the timer, so only the last one is written.
type Manager struct {
	store  *storage.Adapter
	window time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
	pending   map[string]*pendingSave
	versions  map[string]int64
	gen       uint64
}

type Option func(*Manager)

func WithDebounce(d time.Duration) Option   { return func(m *Manager) { m.window = d } }
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }
func WithLogger(l *zap.Logger) Option       { return func(m *Manager) { m.logger = l } }
func WithSessionID(id string) Option        { return func(m *Manager) { m.sessionID = id } }

func NewManager(store *storage.Adapter, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		window:   DefaultDebounce,
		now:      time.Now,
		logger:   zap.NewNop(),
		pending:  map[string]*pendingSave{},
		versions: map[string]int64{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SessionID returns the identifier of this browsing session, creating and
// storing one on first use. Without storage the id lives in memory only.
func (m *Manager) SessionID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionID != "" {
		return m.sessionID
	}
	var id string
	if m.store.GetItem(ctx, SessionIDKey, &id, storage.Temporary) && id != "" {
		m.sessionID = id
		return id
	}
	id = uuid.NewString()
	m.store.SetItem(ctx, SessionIDKey, id, storage.Temporary)
	m.sessionID = id
	return id
}

// SaveQuizSession schedules a debounced write of the envelope.
func (m *Manager) SaveQuizSession(ctx context.Context, sessionID string, quizID quiz.ID, quizType string, answers map[quiz.ID]quiz.Answer, meta Meta) {
	if answers == nil {
		answers = map[quiz.ID]quiz.Answer{}
	}
	env := Envelope{
		QuizID:               quizID,
		QuizType:             quizType,
		Answers:              answers,
		CurrentQuestionIndex: meta.CurrentQuestionIndex,
		IsCompleted:          meta.IsCompleted,
		Title:                meta.Title,
		LastSaved:            m.now().UnixMilli(),
	}
	key := SessionKey(sessionID)
	wctx := context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[key]; ok {
		p.timer.Stop()
	}
	m.gen++
	gen := m.gen
	p := &pendingSave{env: env, gen: gen}
	p.timer = time.AfterFunc(m.window, func() { m.fire(wctx, key, gen) })
	m.pending[key] = p
}

// fire writes the pending envelope of key if it is still generation gen.
func (m *Manager) fire(ctx context.Context, key string, gen uint64) {
	m.mu.Lock()
	p, ok := m.pending[key]
	if !ok || p.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(m.pending, key)
	env := p.env
	env.Version = m.nextVersion(ctx, key)
	// queued under m.mu so a Clear cannot slip its delete in ahead of it
	ok = m.store.SetItem(ctx, key, env, storage.Plain)
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("quiz session not persisted", zap.String("key", key))
	}
}

// nextVersion stamps a write. A stored version newer than our own last
// write means another writer got in between; last writer still wins.
// Caller holds m.mu.
func (m *Manager) nextVersion(ctx context.Context, key string) int64 {
	var stored Envelope
	onDisk := int64(0)
	if m.store.GetItem(ctx, key, &stored, storage.Plain) {
		onDisk = stored.Version
	}
	mine := m.versions[key]
	if onDisk > mine {
		m.logger.Warn("quiz session overwritten by another writer",
			zap.String("key", key), zap.Int64("stored_version", onDisk), zap.Int64("own_version", mine))
	}
	v := onDisk
	if mine > v {
		v = mine
	}
	v++
	m.versions[key] = v
	return v
}

// GetQuizSession returns the persisted envelope. Debounced saves become
// visible once their timer fired or Flush ran.
func (m *Manager) GetQuizSession(ctx context.Context, sessionID string) (*Envelope, bool) {
	var env Envelope
	if !m.store.GetItem(ctx, SessionKey(sessionID), &env, storage.Plain) {
		return nil, false
	}
	if env.Answers == nil {
		env.Answers = map[quiz.ID]quiz.Answer{}
	}
	return &env, true
}

// ClearQuizSession cancels any pending save and removes the envelope.
func (m *Manager) ClearQuizSession(ctx context.Context, sessionID string) {
	key := SessionKey(sessionID)
	m.mu.Lock()
	if p, ok := m.pending[key]; ok {
		p.timer.Stop()
		delete(m.pending, key)
	}
	delete(m.versions, key)
	m.store.RemoveItem(ctx, key, storage.Plain)
	m.mu.Unlock()
}

func (m *Manager) SaveQuizResults(ctx context.Context, sessionID string, r quiz.Results) bool {
	return m.store.SetItem(ctx, ResultsKey(sessionID), r, storage.Plain)
}

func (m *Manager) GetQuizResults(ctx context.Context, sessionID string) (*quiz.Results, bool) {
	var r quiz.Results
	if !m.store.GetItem(ctx, ResultsKey(sessionID), &r, storage.Plain) {
		return nil, false
	}
	return &r, true
}

// Pending reports how many debounced saves are waiting.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush writes every pending envelope now and waits for storage.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	type job struct {
		key string
		gen uint64
	}
	jobs := make([]job, 0, len(m.pending))
	for k, p := range m.pending {
		p.timer.Stop()
		jobs = append(jobs, job{k, p.gen})
	}
	m.mu.Unlock()
	for _, j := range jobs {
		m.fire(ctx, j.key, j.gen)
	}
	return m.store.Flush(ctx)
}
