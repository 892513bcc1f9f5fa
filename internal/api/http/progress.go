package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/catalog"
	"github.com/mind-engage/mindengage-learn/internal/progress"
)

// GET /api/progress/{courseID}
//
// A course the caller never touched reports zero progress.
func GetProgressHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		p, err := store.GetProgress(r.Context(), auth.SubjectFromContext(r.Context()), courseID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			p = progress.CourseProgress{CourseID: courseID}.Normalize()
		case err != nil:
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// POST /api/progress/{courseID}  body: course progress
func UpdateProgressHandler(store catalog.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p progress.CourseProgress
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		p.CourseID = chi.URLParam(r, "courseID")
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		saved, err := store.PutProgress(r.Context(), auth.SubjectFromContext(r.Context()), p)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
