package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// API is the REST boundary the service talks to.
type API interface {
	GetQuiz(ctx context.Context, quizType, slug string) (*Payload, error)
	CompleteQuiz(ctx context.Context, quizType, slug string, r Results) error
	GetQuizResults(ctx context.Context, quizType, slug string) (*Results, error)
}

// SessionStore hands back the persisted session of the current learner,
// if any.
type SessionStore interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, bool)
}

// httpStatus is implemented by transport errors that carry a response
// status code.
type httpStatus interface {
	HTTPStatus() int
}

const DefaultSubmitTimeout = 30 * time.Second

// Service is the action-creator layer over a Store.
type Service struct {
	store         *Store
	api           API
	sessions      SessionStore
	grader        *Grader
	now           func() time.Time
	submitTimeout time.Duration
	postComplete  bool
	logger        *zap.Logger
}

type ServiceOption func(*Service)

func WithSessionStore(ss SessionStore) ServiceOption { return func(s *Service) { s.sessions = ss } }
func WithClock(now func() time.Time) ServiceOption   { return func(s *Service) { s.now = now } }
func WithSubmitTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.submitTimeout = d }
}
func WithLogger(l *zap.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

// WithCompletionPost controls whether SubmitQuiz reports results to the
// server. It is on by default.
func WithCompletionPost(on bool) ServiceOption { return func(s *Service) { s.postComplete = on } }

func NewService(store *Store, api API, opts ...ServiceOption) *Service {
	s := &Service{
		store:         store,
		api:           api,
		grader:        store.grader,
		now:           time.Now,
		submitTimeout: DefaultSubmitTimeout,
		postComplete:  true,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) State() State { return s.store.State() }

func failure(prefix string, err error) string {
	var hs httpStatus
	if errors.As(err, &hs) {
		return fmt.Sprintf("%s: %d", prefix, hs.HTTPStatus())
	}
	return err.Error()
}

// FetchQuiz loads a quiz. With data the network is skipped and the quiz
// starts fresh; otherwise the quiz is fetched and a persisted session for
// the same quiz is restored on top of it.
func (s *Service) FetchQuiz(ctx context.Context, id ID, quizType string, data *Payload) error {
	if data != nil {
		s.store.Dispatch(FetchQuizFulfilled{QuizID: id, QuizType: quizType, Payload: *data})
		return nil
	}
	s.store.Dispatch(FetchQuizPending{QuizID: id, QuizType: quizType})
	if s.api == nil {
		err := errors.New("quiz: no API configured")
		s.store.Dispatch(FetchQuizRejected{Error: err.Error()})
		return err
	}
	p, err := s.api.GetQuiz(ctx, quizType, string(id))
	if err != nil {
		msg := failure("Failed to fetch quiz", err)
		s.logger.Warn("fetch quiz", zap.String("quiz", string(id)), zap.Error(err))
		s.store.Dispatch(FetchQuizRejected{Error: msg})
		return fmt.Errorf("fetch quiz %s: %w", id, err)
	}
	quizID := p.ID
	if quizID == "" {
		quizID = id
	}
	act := FetchQuizFulfilled{QuizID: id, QuizType: quizType, Payload: *p}
	if s.sessions != nil {
		if snap, ok := s.sessions.LoadSnapshot(ctx); ok && snap.QuizID == quizID {
			act.Restored = snap
			s.logger.Debug("restored quiz session", zap.String("quiz", string(quizID)),
				zap.Int("answers", len(snap.Answers)))
		}
	}
	s.store.Dispatch(act)
	return nil
}

// SaveAnswer records the learner's answer. Answers for questions that are
// not loaded are dropped.
func (s *Service) SaveAnswer(questionID ID, v AnswerValue) {
	s.store.Dispatch(SaveAnswer{QuestionID: questionID, Value: v, Timestamp: s.now().UnixMilli()})
}

// SetCurrentQuestionIndex moves to question i, clamped into the range of
// the quiz loaded when the action is reduced, and returns the index
// actually stored.
func (s *Service) SetCurrentQuestionIndex(i int) int {
	return s.store.Dispatch(SetCurrentQuestionIndex{Index: i}).CurrentQuestionIndex
}

type submitOutcome struct {
	results Results
	err     error
}

// SubmitQuiz grades the loaded quiz and, when slug is set, reports the
// results to the server. The call is bounded by ctx and the submit timeout
// so the store never stays in submitting.
func (s *Service) SubmitQuiz(ctx context.Context, slug string) (*Results, error) {
	st := s.store.Dispatch(SubmitQuizPending{})
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	done := make(chan submitOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- submitOutcome{err: fmt.Errorf("submit quiz: %v", r)}
			}
		}()
		res := s.grader.Score(st.Questions, st.Answers, s.now().UnixMilli())
		if s.postComplete && s.api != nil && slug != "" {
			if err := s.api.CompleteQuiz(ctx, DefaultQuizType, slug, res); err != nil {
				done <- submitOutcome{err: fmt.Errorf("complete quiz %s: %w", slug, err)}
				return
			}
		}
		done <- submitOutcome{results: res}
	}()

	var out submitOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = fmt.Errorf("submit quiz: %w", ctx.Err())
	}
	if out.err != nil {
		s.logger.Error("submit quiz", zap.String("slug", slug), zap.Error(out.err))
		s.store.Dispatch(SubmitQuizRejected{Error: out.err.Error()})
		return nil, out.err
	}
	s.store.Dispatch(SubmitQuizFulfilled{Results: out.results})
	return &out.results, nil
}

// FetchQuizResults loads the server copy of the learner's results.
func (s *Service) FetchQuizResults(ctx context.Context, slug string) (*Results, error) {
	quizType := s.store.State().QuizType
	if quizType == "" {
		quizType = DefaultQuizType
	}
	s.store.Dispatch(FetchResultsPending{Slug: slug})
	if s.api == nil {
		err := errors.New("quiz: no API configured")
		s.store.Dispatch(FetchResultsRejected{Error: err.Error()})
		return nil, err
	}
	r, err := s.api.GetQuizResults(ctx, quizType, slug)
	if err != nil {
		s.store.Dispatch(FetchResultsRejected{Error: failure("Failed to fetch results", err)})
		return nil, fmt.Errorf("fetch results %s: %w", slug, err)
	}
	s.store.Dispatch(FetchResultsFulfilled{Results: *r})
	return r, nil
}

// ResetQuiz returns the store to its initial state.
func (s *Service) ResetQuiz() {
	s.store.Dispatch(ResetQuiz{})
}
