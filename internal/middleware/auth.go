package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"permissions-manager/internal/domain"
)

// Auth validates the Bearer token, resolves the email claim against the user
// directory and stores a domain.Principal in the request context. Tokens with
// a valid signature but an email unknown to the directory still pass through:
// such callers are authenticated but hold no memberships, so they only reach
// public data. Requests without a valid token get 401.
func Auth(validator TokenValidator, users domain.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "provide a Bearer token")
				return
			}

			claims, err := validator.Validate(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				logger.Debug("token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
				writeUnauthorized(w, "invalid token")
				return
			}
			email := strings.ToLower(strings.TrimSpace(claims.Email))
			if email == "" {
				writeUnauthorized(w, "token carries no email claim")
				return
			}

			principal := domain.Principal{Email: email}
			user, err := users.GetByEmail(r.Context(), principal.Email)
			switch {
			case err == nil:
				principal.UserID = user.ID
				principal.IsAdmin = user.IsAdmin
			case domain.IsNotFound(err):
				// Unknown to the directory: authenticated, no roles anywhere.
			default:
				logger.Error("user lookup failed", "error", err, "email", principal.Email)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "unauthorized",
		"message": message,
	})
}
