package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sql": NewSQLStore(dbh)}
}

func sample() quiz.Payload {
	return quiz.Payload{ID: "loops", Title: "Loops", Questions: []quiz.Question{
		{ID: "1", Question: "for?", Type: quiz.TypeMCQ, CorrectOptionID: "a",
			Options: []quiz.Option{{ID: "a", Text: "yes"}}},
		{ID: "2", Question: "fill", Type: quiz.TypeBlanks, Blanks: []string{"range"}},
	}}
}

func TestStoreQuizzes(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetQuiz(ctx, "lesson", "loops")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.PutQuiz(ctx, "lesson", "loops", sample()))
			p, err := s.GetQuiz(ctx, "lesson", "loops")
			require.NoError(t, err)
			assert.Equal(t, "Loops", p.Title)
			assert.Equal(t, sample().Questions, p.Questions)
		})
	}
}

func TestStoreCompletions(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.LatestCompletion(ctx, "common", "loops", "u1")
			assert.ErrorIs(t, err, ErrNotFound)

			first, err := s.RecordCompletion(ctx, "common", "loops", "u1", quiz.Results{Score: 1, MaxScore: 2, Percentage: 50})
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			time.Sleep(2 * time.Millisecond)
			_, err = s.RecordCompletion(ctx, "common", "loops", "u1", quiz.Results{Score: 2, MaxScore: 2, Percentage: 100})
			require.NoError(t, err)
			_, err = s.RecordCompletion(ctx, "common", "loops", "u2", quiz.Results{Score: 0, MaxScore: 2})
			require.NoError(t, err)

			c, err := s.LatestCompletion(ctx, "common", "loops", "u1")
			require.NoError(t, err)
			assert.Equal(t, 100, c.Results.Percentage)
		})
	}
}

func TestStoreProgressIsNormalizedPerUser(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			saved, err := s.PutProgress(ctx, "u1", progress.CourseProgress{
				CourseID: "go-101", CompletedChapters: []string{"b", "a"}, TotalChapters: 2,
			})
			require.NoError(t, err)
			assert.True(t, saved.IsCompleted)

			got, err := s.GetProgress(ctx, "u1", "go-101")
			require.NoError(t, err)
			assert.Equal(t, saved, got)
			assert.Equal(t, []string{"a", "b"}, got.CompletedChapters)

			_, err = s.GetProgress(ctx, "u2", "go-101")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLStoreSurfacesDriverErrors(t *testing.T) {
	dbh, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer dbh.Close()
	boom := errors.New("db down")
	mock.ExpectQuery("SELECT id,title,questions_json FROM quizzes").WillReturnError(boom)

	_, err = NewSQLStore(dbh).GetQuiz(context.Background(), "lesson", "loops")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
