package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/tiptop/backend/internal/logger"
	"go.uber.org/zap"
)

const TokenCookieName = "token"

type contextKey string

const accountIDKey contextKey = "accountID"

var (
	errNoToken      = errors.New("no token provided")
	errTokenRevoked = errors.New("token revoked")
)

// AuthMiddleware accepts a JWT from the Authorization header or the token
// cookie and puts the account id into the request context. Tokens listed
// under blacklist:<token> in redis are rejected; a nil client skips that check.
func AuthMiddleware(blacklist *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				logger.Log.Debug("Missing token", zap.String("path", r.URL.Path))
				sendUnauthorized(w, "Authorization required")
				return
			}

			accountID, err := ValidateToken(token)
			if err != nil {
				logger.Log.Warn("Invalid token", zap.String("path", r.URL.Path), zap.Error(err))
				sendUnauthorized(w, "Invalid token")
				return
			}

			if err := checkBlacklist(r.Context(), blacklist, token); err != nil {
				logger.Log.Warn("Rejected token", zap.Int64("account_id", accountID), zap.Error(err))
				sendUnauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// ExtractToken returns the bearer token of r, preferring the Authorization
// header over the cookie.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("unexpected claims type")
	}

	// JSON numbers decode as float64.
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, errors.New("missing user_id claim")
	}
	return int64(id), nil
}

func checkBlacklist(ctx context.Context, client *redis.Client, token string) error {
	if client == nil {
		return nil
	}

	n, err := client.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		// Fail open while redis is unreachable.
		logger.Log.Error("Blacklist lookup failed", zap.Error(err))
		return nil
	}
	if n > 0 {
		return errTokenRevoked
	}
	return nil
}

func BlacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok && id > 0
}

func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, message)
}
