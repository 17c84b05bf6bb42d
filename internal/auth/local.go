package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/classbrief/classbrief/internal/auth/middleware"
	"github.com/classbrief/classbrief/internal/audit"
)

const minPasswordLen = 6

// POST /api/auth/signup  { "email": "...", "password": "...", "name": "..." }
func SignupHandler(a *authmw.AuthService, teachers *TeacherStore, sink audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if !strings.Contains(req.Email, "@") {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		if len(req.Password) < minPasswordLen {
			http.Error(w, "password too short", http.StatusBadRequest)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		teacher, err := teachers.CreateLocal(r.Context(), "local|"+uuid.NewString(), req.Email, req.Name, string(hash))
		if errors.Is(err, ErrDuplicateEmail) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, "create account", http.StatusInternalServerError)
			return
		}

		sink.Record(r.Context(), audit.Entry{
			Teacher: teacher.ID,
			Action:  audit.ActionAuthSignup,
			Status:  audit.StatusSuccess,
		})
		issueAndRespond(w, a, teacher)
	}
}

// POST /api/auth/login  { "email": "...", "password": "..." }
func LocalLoginHandler(a *authmw.AuthService, teachers *TeacherStore, sink audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		teacher, err := teachers.FindByEmail(r.Context(), req.Email)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		// A Google-only account has no password to check against.
		if teacher.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)) != nil {
			sink.Record(r.Context(), audit.Entry{
				Teacher: teacher.ID,
				Action:  audit.ActionAuthLogin,
				Status:  audit.StatusFailure,
				Error:   "invalid credentials",
			})
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		sink.Record(r.Context(), audit.Entry{
			Teacher:  teacher.ID,
			Action:   audit.ActionAuthLogin,
			Status:   audit.StatusSuccess,
			Metadata: map[string]any{"provider": "local"},
		})
		issueAndRespond(w, a, teacher)
	}
}

func issueAndRespond(w http.ResponseWriter, a *authmw.AuthService, teacher Teacher) {
	// The session gate requires a provider id; local accounts use their own
	// account id so their tokens stay complete.
	providerID := teacher.GoogleID
	if providerID == "" {
		providerID = teacher.ID
	}
	tok, err := a.IssueJWT(authmw.Identity{
		UserID:   teacher.ID,
		Email:    teacher.Email,
		GoogleID: providerID,
		Role:     teacher.Role,
	})
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": tok,
		"teacher":      teacher,
	})
}
