package quizapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

func TestClientRoundTrips(t *testing.T) {
	var gotAuth string
	var completed quiz.Results
	r := chi.NewRouter()
	r.Get("/api/quizzes/{type}/{slug}", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "type": chi.URLParam(r, "type"), "title": "Loops",
			"questions": []map[string]any{{"id": 1, "question": "?", "type": "mcq", "correctOptionId": "a"}},
		})
	})
	r.Post("/api/quizzes/{type}/{slug}/complete", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&completed)
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/api/quizzes/{type}/{slug}/results", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	r.Post("/api/progress/{course}", func(w http.ResponseWriter, r *http.Request) {
		var p progress.CourseProgress
		_ = json.NewDecoder(r.Body).Decode(&p)
		p.Progress = 42
		_ = json.NewEncoder(w).Encode(p)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL+"/", WithToken(func(context.Context) string { return "tok" }))
	ctx := context.Background()

	p, err := c.GetQuiz(ctx, "lesson", "loops")
	require.NoError(t, err)
	assert.Equal(t, quiz.ID("7"), p.ID)
	assert.Equal(t, "lesson", p.Type)
	assert.Equal(t, quiz.ID("1"), p.Questions[0].ID)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.NoError(t, c.CompleteQuiz(ctx, quiz.DefaultQuizType, "loops", quiz.Results{Score: 1, MaxScore: 2, Percentage: 50}))
	assert.Equal(t, 50, completed.Percentage)

	_, err = c.GetQuizResults(ctx, "common", "loops")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.HTTPStatus())

	out, err := c.UpdateProgress(ctx, progress.CourseProgress{CourseID: "go-101"})
	require.NoError(t, err)
	assert.Equal(t, 42, out.Progress)
	assert.Equal(t, "go-101", out.CourseID)
}

func TestClientStatusErrorDrivesQuizFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	svc := quiz.NewService(quiz.NewStore(nil), New(srv.URL))
	require.Error(t, svc.FetchQuiz(context.Background(), "missing", "lesson", nil))
	assert.Equal(t, "Failed to fetch quiz: 404", svc.State().Error)
}
