package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/logging"
)

type contextKey string

const userContextKey contextKey = "user"

// loginRequest is the demo-login payload. An unknown email creates the
// user on the spot.
type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// handleLogin resolves (or lazily creates) a user by email and sets the
// identity cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	u, err := s.store.CreateOrGetUser(r.Context(), req.Email, strings.TrimSpace(req.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    u.ID.String(),
		Path:     "/",
		MaxAge:   int(s.cfg.Auth.CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logging.FromContext(r.Context()).Info("user logged in", "user_id", u.ID)
	writeJSON(w, http.StatusOK, u)
}

// requireUser resolves the identity cookie to a user and stores it in
// the request context. Requests without a valid identity get 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error: "authentication required",
				Code:  "unauthorized",
			})
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate reads the identity cookie and loads the user it names.
func (s *Server) authenticate(r *http.Request) (buyer.User, error) {
	c, err := r.Cookie(s.cfg.Auth.CookieName)
	if err != nil {
		return buyer.User{}, err
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return buyer.User{}, err
	}
	return s.store.GetUser(r.Context(), id)
}

// userFromContext returns the authenticated user, if any.
func userFromContext(ctx context.Context) (buyer.User, bool) {
	u, ok := ctx.Value(userContextKey).(buyer.User)
	return u, ok
}

// currentUser returns the authenticated user for a request that has
// passed requireUser.
func currentUser(r *http.Request) buyer.User {
	u, _ := userFromContext(r.Context())
	return u
}
