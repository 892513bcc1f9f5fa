package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/catalog"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// GET /api/quizzes/{type}/{slug}
//
// Answer keys are served as-is: the client grades locally.
func GetQuizHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qt, slug := chi.URLParam(r, "type"), chi.URLParam(r, "slug")
		p, err := store.GetQuiz(r.Context(), qt, slug)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// PUT /api/quizzes/{type}/{slug}  { "title": "...", "questions": [...] }
func PutQuizHandler(store catalog.Store, v *validator.Validate) http.HandlerFunc {
	type req struct {
		ID        quiz.ID         `json:"id"`
		Title     string          `json:"title" validate:"required"`
		Questions []quiz.Question `json:"questions" validate:"required,min=1,dive"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		qt, slug := chi.URLParam(r, "type"), chi.URLParam(r, "slug")
		p := quiz.Payload{ID: in.ID, Type: qt, Title: in.Title, Questions: in.Questions}
		if err := store.PutQuiz(r.Context(), qt, slug, p); err != nil {
			storeError(w, err)
			return
		}
		stored, err := store.GetQuiz(r.Context(), qt, slug)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

// POST /api/quizzes/{type}/{slug}/complete  body: quiz results
func CompleteQuizHandler(store catalog.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res quiz.Results
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := store.RecordCompletion(r.Context(),
			chi.URLParam(r, "type"), chi.URLParam(r, "slug"), auth.SubjectFromContext(r.Context()), res)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// GET /api/quizzes/{type}/{slug}/results  latest results of the caller
// Completions are recorded under the common type, so a typed lookup that
// finds nothing falls back to it.
func GetResultsHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizType, slug := chi.URLParam(r, "type"), chi.URLParam(r, "slug")
		user := auth.SubjectFromContext(r.Context())
		c, err := store.LatestCompletion(r.Context(), quizType, slug, user)
		if errors.Is(err, catalog.ErrNotFound) && quizType != quiz.DefaultQuizType {
			c, err = store.LatestCompletion(r.Context(), quiz.DefaultQuizType, slug, user)
		}
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Results)
	}
}
