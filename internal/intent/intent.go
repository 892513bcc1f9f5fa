package intent

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// Key is the temporary storage key of the pending intent.
const Key = "auth_intent"

const DefaultMaxAge = 30 * time.Minute

type Action string

const (
	WatchVideo     Action = "watch_video"
	TakeQuiz       Action = "take_quiz"
	ContinueCourse Action = "continue_course"
	BrowseCourses  Action = "browse_courses"
	ViewProgress   Action = "view_progress"
)

// Intent is what the learner was doing when sign-in interrupted them.
type Intent struct {
	Action    Action `json:"action" validate:"required"`
	CourseID  string `json:"courseId,omitempty" validate:"required_if=Action watch_video,required_if=Action continue_course"`
	VideoID   string `json:"videoId,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix millis
	URL       string `json:"url,omitempty" validate:"omitempty,uri"`
}

// Navigator performs the client-side route change.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

type NavigatorFunc func(ctx context.Context, path string) error

func (f NavigatorFunc) Navigate(ctx context.Context, path string) error { return f(ctx, path) }

// Manager stores an intent before the auth redirect and replays it once
// afterwards.
type Manager struct {
	store    *storage.Adapter
	validate *validator.Validate
	maxAge   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Manager)

func WithMaxAge(d time.Duration) Option     { return func(m *Manager) { m.maxAge = d } }
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }
func WithLogger(l *zap.Logger) Option       { return func(m *Manager) { m.logger = l } }

func NewManager(store *storage.Adapter, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		validate: validator.New(),
		maxAge:   DefaultMaxAge,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Store records in, stamping it with the current time when unset.
func (m *Manager) Store(ctx context.Context, in Intent) error {
	if err := m.validate.Struct(in); err != nil {
		return fmt.Errorf("invalid intent: %w", err)
	}
	if in.Timestamp == 0 {
		in.Timestamp = m.now().UnixMilli()
	}
	if !m.store.SetItem(ctx, Key, in, storage.Temporary) {
		return fmt.Errorf("store intent: storage unavailable")
	}
	return nil
}

// Restore returns the stored intent and deletes it. Stale or malformed
// intents are deleted and not returned.
func (m *Manager) Restore(ctx context.Context) (Intent, bool) {
	var in Intent
	ok := m.store.GetItem(ctx, Key, &in, storage.Temporary)
	if !ok {
		if m.store.HasItem(ctx, Key, storage.Temporary) {
			m.store.RemoveItem(ctx, Key, storage.Temporary)
		}
		return Intent{}, false
	}
	m.store.RemoveItem(ctx, Key, storage.Temporary)
	if m.maxAge > 0 && m.now().Sub(time.UnixMilli(in.Timestamp)) > m.maxAge {
		m.logger.Info("discarding stale intent", zap.String("action", string(in.Action)))
		return Intent{}, false
	}
	if err := m.validate.Struct(in); err != nil {
		m.logger.Warn("discarding invalid intent", zap.Error(err))
		return Intent{}, false
	}
	return in, true
}

// Route maps an intent to the path it resumes.
func Route(in Intent) string {
	switch in.Action {
	case WatchVideo:
		p := "/dashboard/course/" + url.PathEscape(in.CourseID)
		if in.VideoID != "" {
			p += "?video=" + url.QueryEscape(in.VideoID)
		}
		return p
	case TakeQuiz:
		if in.URL != "" {
			return in.URL
		}
		return "/dashboard/quizzes"
	case ContinueCourse:
		return "/dashboard/course/" + url.PathEscape(in.CourseID)
	case BrowseCourses:
		return "/dashboard/explore"
	case ViewProgress:
		return "/dashboard/progress"
	}
	if in.URL != "" {
		return in.URL
	}
	return "/dashboard"
}

// Execute restores the pending intent and navigates to it. It reports
// false when there was nothing to replay.
func (m *Manager) Execute(ctx context.Context, nav Navigator) (bool, error) {
	in, ok := m.Restore(ctx)
	if !ok {
		return false, nil
	}
	path := Route(in)
	if err := nav.Navigate(ctx, path); err != nil {
		return true, fmt.Errorf("navigate %s: %w", path, err)
	}
	return true, nil
}
