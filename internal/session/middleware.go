package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Middleware attaches a *Context to every request. A missing or malformed
// session cookie gets a fresh random id; the cookie is re-issued on each
// request so its lifetime tracks the store's.
func Middleware(store Store, cookieName string, ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					sid = c.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := WithContext(r.Context(), New(sid, store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithContext(ctx context.Context, sess *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func FromContext(ctx context.Context) (*Context, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Context)
	return sess, ok && sess != nil
}
