package quizsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

func answers(opt quiz.ID) map[quiz.ID]quiz.Answer {
	return map[quiz.ID]quiz.Answer{
		"1": {QuestionID: "1", Value: quiz.OptionAnswer{SelectedOptionID: opt}, Timestamp: 1},
	}
}

func TestSessionIDIsStableAndStored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := NewManager(store)

	id := m.SessionID(ctx)
	require.NotEmpty(t, id)
	assert.Equal(t, id, m.SessionID(ctx))

	var stored string
	require.True(t, store.GetItem(ctx, SessionIDKey, &stored, storage.Temporary))
	assert.Equal(t, id, stored)
	assert.Equal(t, id, NewManager(store).SessionID(ctx), "a new manager picks up the stored id")

	assert.NotEmpty(t, NewManager(storage.Unavailable()).SessionID(ctx))
}

func TestSaveRoundTripAfterFlush(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), WithDebounce(time.Hour))

	in := answers("b")
	m.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", in, Meta{CurrentQuestionIndex: 1, Title: "Basics"})
	_, ok := m.GetQuizSession(ctx, "s1")
	assert.False(t, ok, "still debounced")

	require.NoError(t, m.Flush(ctx))
	env, ok := m.GetQuizSession(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, in, env.Answers)
	assert.Equal(t, quiz.ID("quiz-1"), env.QuizID)
	assert.Equal(t, 1, env.CurrentQuestionIndex)
	assert.Equal(t, "Basics", env.Title)
	assert.Equal(t, int64(1), env.Version)
}

func TestSaveIsDebounced(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := NewManager(store, WithDebounce(30*time.Millisecond))

	for _, opt := range []quiz.ID{"a", "b", "c"} {
		m.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers(opt), Meta{})
	}
	assert.Equal(t, 1, m.Pending())

	require.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Flush(ctx))
	env, ok := m.GetQuizSession(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, answers("c"), env.Answers)
	assert.Equal(t, int64(1), env.Version, "three calls, one write")
}

func TestClearCancelsPendingSave(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), WithDebounce(time.Hour))
	m.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("a"), Meta{})
	require.NoError(t, m.Flush(ctx))

	m.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("b"), Meta{})
	m.ClearQuizSession(ctx, "s1")
	require.NoError(t, m.Flush(ctx))

	_, ok := m.GetQuizSession(ctx, "s1")
	assert.False(t, ok)
	assert.Zero(t, m.Pending())
}

func TestClearWinsOverFiringSave(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), WithDebounce(time.Nanosecond))

	for i := 0; i < 200; i++ {
		m.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("a"), Meta{})
		m.ClearQuizSession(ctx, "s1")
	}
	require.NoError(t, m.Flush(ctx))

	_, ok := m.GetQuizSession(ctx, "s1")
	assert.False(t, ok, "a cleared session never reappears")
	assert.Zero(t, m.Pending())
}

func TestVersionRaceIsLogged(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	core, logs := observer.New(zap.WarnLevel)
	mine := NewManager(store, WithDebounce(time.Hour), WithLogger(zap.New(core)))
	other := NewManager(store, WithDebounce(time.Hour))

	mine.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("a"), Meta{})
	require.NoError(t, mine.Flush(ctx))
	other.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("b"), Meta{})
	require.NoError(t, other.Flush(ctx))
	other.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("b"), Meta{})
	require.NoError(t, other.Flush(ctx))

	mine.SaveQuizSession(ctx, "s1", "quiz-1", "lesson", answers("c"), Meta{})
	require.NoError(t, mine.Flush(ctx))

	env, ok := mine.GetQuizSession(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, answers("c"), env.Answers, "last writer wins")
	assert.Equal(t, int64(4), env.Version)
	assert.Equal(t, 1, logs.FilterMessage("quiz session overwritten by another writer").Len())
}

func TestResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory())
	r := quiz.Results{Score: 1, MaxScore: 2, Percentage: 50,
		QuestionResults: []quiz.QuestionResult{{QuestionID: "1", IsCorrect: true}}}
	require.True(t, m.SaveQuizResults(ctx, "s1", r))
	require.NoError(t, m.Flush(ctx))

	got, ok := m.GetQuizResults(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, r, *got)
}
