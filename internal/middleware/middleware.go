package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Dan9191/auth-service/internal/auth"
	"github.com/Dan9191/auth-service/internal/models"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// UserResolver loads the user record for a verified token subject
type UserResolver interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthMiddleware extracts the bearer token, verifies it, resolves the
// subject to a user record, and stores the user in the request context.
// Every failure along the way is a 401.
func AuthMiddleware(issuer *auth.TokenIssuer, store UserResolver, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			subject, err := issuer.Verify(tokenString)
			if err != nil {
				log.Debugf("Token verification failed: %v", err)
				unauthorized(w, "Could not validate credentials")
				return
			}

			user, err := store.FindUserByEmail(r.Context(), subject)
			if err != nil {
				log.Debugf("Token subject not found: %s", subject)
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveUser rejects requests whose authenticated user is inactive.
// Must run after AuthMiddleware.
func RequireActiveUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}
			if !user.IsActive {
				detail(w, http.StatusBadRequest, "Inactive user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperuser rejects requests from non-superusers. Must run after
// RequireActiveUser.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}
			if !user.IsSuperuser {
				detail(w, http.StatusBadRequest, "The user doesn't have enough privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user stored by AuthMiddleware
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	detail(w, http.StatusUnauthorized, msg)
}

func detail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
