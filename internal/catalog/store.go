package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

var ErrNotFound = errors.New("catalog: not found")

// Completion is one server-confirmed quiz submission.
type Completion struct {
	ID          string       `json:"id"`
	QuizType    string       `json:"quizType"`
	Slug        string       `json:"slug"`
	UserID      string       `json:"userId"`
	Results     quiz.Results `json:"results"`
	CompletedAt int64        `json:"completedAt"` // unix millis
}

// Store backs the gateway: published quizzes, completions and per-user
// course progress.
type Store interface {
	PutQuiz(ctx context.Context, quizType, slug string, p quiz.Payload) error
	GetQuiz(ctx context.Context, quizType, slug string) (quiz.Payload, error)
	RecordCompletion(ctx context.Context, quizType, slug, userID string, r quiz.Results) (Completion, error)
	LatestCompletion(ctx context.Context, quizType, slug, userID string) (Completion, error)
	GetProgress(ctx context.Context, userID, courseID string) (progress.CourseProgress, error)
	PutProgress(ctx context.Context, userID string, p progress.CourseProgress) (progress.CourseProgress, error)
}

func newCompletion(quizType, slug, userID string, r quiz.Results, now time.Time) Completion {
	return Completion{
		ID:          uuid.NewString(),
		QuizType:    quizType,
		Slug:        slug,
		UserID:      userID,
		Results:     r,
		CompletedAt: now.UnixMilli(),
	}
}

// ---- in-memory store ----

type quizKey struct{ quizType, slug string }
type progressKey struct{ userID, courseID string }

type memoryStore struct {
	mu          sync.RWMutex
	quizzes     map[quizKey]quiz.Payload
	completions []Completion
	progress    map[progressKey]progress.CourseProgress
}

func NewMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[quizKey]quiz.Payload{},
		progress: map[progressKey]progress.CourseProgress{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, quizType, slug string, p quiz.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[quizKey{quizType, slug}] = p
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, quizType, slug string) (quiz.Payload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.quizzes[quizKey{quizType, slug}]
	if !ok {
		return quiz.Payload{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) RecordCompletion(_ context.Context, quizType, slug, userID string, r quiz.Results) (Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := newCompletion(quizType, slug, userID, r, time.Now())
	m.completions = append(m.completions, c)
	return c, nil
}

func (m *memoryStore) LatestCompletion(_ context.Context, quizType, slug, userID string) (Completion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.completions) - 1; i >= 0; i-- {
		c := m.completions[i]
		if c.QuizType == quizType && c.Slug == slug && c.UserID == userID {
			return c, nil
		}
	}
	return Completion{}, ErrNotFound
}

func (m *memoryStore) GetProgress(_ context.Context, userID, courseID string) (progress.CourseProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[progressKey{userID, courseID}]
	if !ok {
		return progress.CourseProgress{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) PutProgress(_ context.Context, userID string, p progress.CourseProgress) (progress.CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = p.Normalize()
	if p.UpdatedAt == 0 {
		p.UpdatedAt = time.Now().UnixMilli()
	}
	m.progress[progressKey{userID, p.CourseID}] = p
	return p, nil
}
