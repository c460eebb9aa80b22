package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"go.uber.org/zap"
)

// AccountLookup loads the account behind an authenticated request.
type AccountLookup func(ctx context.Context, id int64) (*models.Account, error)

func HasRole(account *models.Account, role models.Role) bool {
	return account.HasRole(role)
}

// RequireRole must run after AuthMiddleware. Requests from accounts without
// role get 403.
func RequireRole(lookup AccountLookup, role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if !ok {
				sendUnauthorized(w, "Authorization required")
				return
			}

			account, err := lookup(r.Context(), accountID)
			if err != nil {
				logger.Log.Warn("Role check lookup failed", zap.Int64("account_id", accountID), zap.Error(err))
				sendForbidden(w)
				return
			}

			if !HasRole(account, role) {
				logger.Log.Warn("Access denied",
					zap.Int64("account_id", accountID),
					zap.String("required_role", string(role)),
					zap.String("path", r.URL.Path))
				sendForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func sendForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, `{"error":"Access denied"}`)
}
