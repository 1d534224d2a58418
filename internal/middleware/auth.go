package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/z-relay/internal/model/chat"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

const bearerPrefix = "Bearer "

type sessionKey struct{}

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (chat.Session, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer <token>"
// header and stores the resolved session in the request context.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				utils.RespondFailure(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			session, err := auth.Authenticate(r.Context(), strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				utils.RespondFailure(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session chat.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by BearerAuth.
func SessionFromContext(ctx context.Context) (chat.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(chat.Session)
	return session, ok
}
