package quizsession

import (
	"context"

	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

// Persister mirrors the quiz store into session storage. Register Effect
// on the store and pass the Persister to quiz.WithSessionStore.
type Persister struct {
	m   *Manager
	ctx context.Context
}

func NewPersister(ctx context.Context, m *Manager) *Persister {
	return &Persister{m: m, ctx: context.WithoutCancel(ctx)}
}

// Effect is a quiz.Effect.
func (p *Persister) Effect(a quiz.Action, _, next quiz.State) {
	switch a := a.(type) {
	case quiz.FetchQuizFulfilled, quiz.SaveAnswer, quiz.SetCurrentQuestionIndex:
		p.save(next)
	case quiz.SubmitQuizFulfilled:
		p.save(next)
		p.m.SaveQuizResults(p.ctx, p.m.SessionID(p.ctx), a.Results)
	case quiz.ResetQuiz:
		p.m.ClearQuizSession(p.ctx, p.m.SessionID(p.ctx))
	}
}

func (p *Persister) save(s quiz.State) {
	if s.QuizID == "" || len(s.Questions) == 0 {
		return
	}
	p.m.SaveQuizSession(p.ctx, p.m.SessionID(p.ctx), s.QuizID, s.QuizType, s.Answers, Meta{
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		IsCompleted:          s.IsCompleted,
		Title:                s.Title,
	})
}

// LoadSnapshot implements quiz.SessionStore.
func (p *Persister) LoadSnapshot(ctx context.Context) (*quiz.Snapshot, bool) {
	env, ok := p.m.GetQuizSession(ctx, p.m.SessionID(ctx))
	if !ok {
		return nil, false
	}
	return &quiz.Snapshot{
		QuizID:               env.QuizID,
		Answers:              env.Answers,
		CurrentQuestionIndex: env.CurrentQuestionIndex,
	}, true
}

// Close writes pending sessions; Manager has no other resources.
func (m *Manager) Close(ctx context.Context) error { return m.Flush(ctx) }
