package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

// POST /auth/login  { "username": "...", "password": "..." }
//
// Development login: any username whose password equals the username gets
// a learner token. Disable it outside local setups.
func LoginHandler(a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Username != req.Password {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, rbac.RoleLearner)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": tok})
	}
}
