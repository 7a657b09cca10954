package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthCookie is the cookie a browser client carries its session token in.
const AuthCookie = "auth_token"

type ctxKey struct{}

// Verifier turns a token into the caller's user id.
type Verifier func(token string) (uuid.UUID, error)

// UserID returns the authenticated caller, or uuid.Nil.
func UserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKey{}).(uuid.UUID)
	return id
}

// WithUserID stores the caller on ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Token pulls the session token from the Authorization header, falling back to the cookie.
// Browsers cannot set headers on a WebSocket upgrade, so the cookie path matters there.
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(AuthCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate rejects requests without a valid token with 401 and otherwise puts the caller
// on the request context.
func Authenticate(logger *logrus.Logger, verify Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := Token(r)
			if token == "" {
				http.Error(w, `{"error":"unauthenticated","message":"missing token"}`, http.StatusUnauthorized)
				return
			}
			id, err := verify(token)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				}).WithError(err).Debug("token rejected")
				http.Error(w, `{"error":"unauthenticated","message":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}
