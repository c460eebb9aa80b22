package services

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/middleware"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/password"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/session"
	"go.uber.org/zap"
)

// SessionAccountKey holds the signed-in account id in the session.
const SessionAccountKey = "account_id"

type AuthService struct {
	accounts  AccountStore
	redis     *redis.Client
	validator *ValidationHelper
	secure    bool
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"jane@example.com"` // Account email
	Password string `json:"password" validate:"required" example:"password123"`         // Account password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=2,max=80" example:"jane"`
	Email           string `json:"email" validate:"required,email,max=120" example:"jane@example.com"`
	Password        string `json:"password" validate:"required,min=6" example:"password123"`
	ConfirmPassword string `json:"confirm_password" validate:"required" example:"password123"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token   string          `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Account *models.Account `json:"account"`
}

func NewAuthService(accounts AccountStore, redisClient *redis.Client, secureCookies bool) *AuthService {
	return &AuthService{
		accounts:  accounts,
		redis:     redisClient,
		validator: NewValidationHelper(),
		secure:    secureCookies,
	}
}

// Register handles account signup
// @Summary Register a new account
// @Description Create an account and its empty coin ledger
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request or passwords do not match"
// @Failure 409 {object} ErrorResponse "Username or email already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("Registration attempt", zap.String("ip", r.RemoteAddr))

	var req RegisterRequest
	if !s.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	if req.Password != req.ConfirmPassword {
		SendServiceError(w, ErrMismatch)
		return
	}

	ctx := r.Context()
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if err := s.ensureAvailable(r, username, email); err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			logger.Log.Error("Registration lookup failed", zap.Error(err))
		}
		SendServiceError(w, err)
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		logger.Log.Error("Password hashing failed", zap.Error(err))
		SendServiceError(w, err)
		return
	}

	account := &models.Account{Username: username, Email: email, PasswordHash: hash, Role: models.RoleUser}
	err = s.accounts.CreateWithLedger(ctx, account, 0, decimal.Zero)
	if errors.Is(err, repository.ErrDuplicate) {
		SendServiceError(w, ErrAlreadyExists)
		return
	}
	if err != nil {
		logger.Log.Error("Account creation failed", zap.String("email", email), zap.Error(err))
		SendServiceError(w, err)
		return
	}

	token, err := generateJWT(account.ID)
	if err != nil {
		logger.Log.Error("JWT generation failed", zap.Int64("account_id", account.ID), zap.Error(err))
		SendServiceError(w, err)
		return
	}

	s.signIn(w, r, account.ID, token)
	logger.Log.Info("Account registered", zap.Int64("account_id", account.ID))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, AuthResponse{Token: token, Account: account})
}

// Login handles account authentication
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("Login attempt", zap.String("ip", r.RemoteAddr))

	var req LoginRequest
	if !s.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	account, err := s.accounts.GetByEmail(r.Context(), normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		SendServiceError(w, ErrInvalidCredentials)
		return
	}
	if err != nil {
		logger.Log.Error("Login lookup failed", zap.Error(err))
		SendServiceError(w, err)
		return
	}

	if !password.Verify(req.Password, account.PasswordHash) {
		logger.Log.Info("Invalid password", zap.Int64("account_id", account.ID))
		SendServiceError(w, ErrInvalidCredentials)
		return
	}

	token, err := generateJWT(account.ID)
	if err != nil {
		logger.Log.Error("JWT generation failed", zap.Int64("account_id", account.ID), zap.Error(err))
		SendServiceError(w, err)
		return
	}

	s.signIn(w, r, account.ID, token)
	logger.Log.Info("Login successful", zap.Int64("account_id", account.ID))

	render.JSON(w, r, AuthResponse{Token: token, Account: account})
}

// Logout handles account logout
// @Summary Logout
// @Description Revoke the current token and end the session
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := middleware.ExtractToken(r); token != "" && s.redis != nil {
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(ctx, middleware.BlacklistKey(token), "1", expiry).Err(); err != nil {
			logger.Log.Error("Failed to blacklist token", zap.Error(err))
		}
	}

	if sess, ok := session.FromContext(ctx); ok {
		if err := sess.Clear(ctx, SessionAccountKey); err != nil {
			logger.Log.Warn("Failed to clear session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	render.JSON(w, r, map[string]string{"message": "Logout successful"})
}

// GetAccount returns the signed-in account
// @Summary Current account
// @Description Get the authenticated account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /auth/account [get]
func (s *AuthService) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := s.accounts.GetByID(r.Context(), accountID)
	if errors.Is(err, repository.ErrNotFound) {
		SendServiceError(w, ErrNotFound)
		return
	}
	if err != nil {
		logger.Log.Error("Failed to fetch account", zap.Int64("account_id", accountID), zap.Error(err))
		SendServiceError(w, err)
		return
	}

	render.JSON(w, r, account)
}

func (s *AuthService) ensureAvailable(r *http.Request, username, email string) error {
	ctx := r.Context()

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// signIn sets the token cookie and pins the account id in the session.
func (s *AuthService) signIn(w http.ResponseWriter, r *http.Request, accountID int64, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   viper.GetInt("jwt.expiry_hours") * 3600,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if sess, ok := session.FromContext(r.Context()); ok {
		if err := sess.Set(r.Context(), SessionAccountKey, strconv.FormatInt(accountID, 10)); err != nil {
			logger.Log.Warn("Failed to store session account", zap.Error(err))
		}
	}
}

func generateJWT(accountID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": accountID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}
