package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/speakup-coach/backend/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenParser turns a bearer token into a user id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// Auth rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				unauthorized(w, "Not authorized, no token")
				return
			}

			userID, err := parser.Parse(strings.TrimSpace(token))
			if err != nil {
				unauthorized(w, "Not authorized, token failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
