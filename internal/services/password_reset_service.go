package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/mail"
	"github.com/tiptop/backend/internal/password"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/session"
	"go.uber.org/zap"
)

const (
	pendingResetKey = "pending_reset"

	codeMin   = 100000
	codeRange = 900000
)

// PendingReset is the reset state kept in the client's session between the
// three steps. Only the digest of the code is stored.
type PendingReset struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
}

type PasswordResetService struct {
	accounts AccountStore
	mailer   mail.Mailer
	limiter  RateLimiter
	ttl      time.Duration
	now      func() time.Time
	newCode  func() (string, error)
}

func NewPasswordResetService(accounts AccountStore, mailer mail.Mailer, limiter RateLimiter, ttl time.Duration) *PasswordResetService {
	return &PasswordResetService{
		accounts: accounts,
		mailer:   mailer,
		limiter:  limiter,
		ttl:      ttl,
		now:      time.Now,
		newCode:  generateResetCode,
	}
}

func (s *PasswordResetService) CodeTimeout() time.Duration {
	return s.ttl
}

// RequestCode issues a fresh code for email, replaces any pending reset in
// sess and mails the code. Unknown emails return ErrNotFound and leave sess
// untouched.
func (s *PasswordResetService) RequestCode(ctx context.Context, sess *session.Context, email string) error {
	email = normalizeEmail(email)

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, email); err != nil {
			return err
		}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	now := s.now()
	pending := PendingReset{
		Email:     account.Email,
		CodeHash:  hashCode(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := sess.SetJSON(ctx, pendingResetKey, pending); err != nil {
		return err
	}

	html, text, err := mail.RenderResetEmail(account.Username, code)
	if err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}

	if err := s.mailer.Send(ctx, account.Email, mail.ResetSubject, html, text); err != nil {
		logger.Log.Error("Reset email delivery failed", zap.Int64("account_id", account.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	logger.Log.Info("Reset code issued",
		zap.Int64("account_id", account.ID),
		zap.Time("expires_at", pending.ExpiresAt))
	return nil
}

// VerifyCode marks the pending reset verified when code matches. A wrong code
// leaves the stored state as it was, and a correct code may be verified again
// until the reset completes or expires.
func (s *PasswordResetService) VerifyCode(ctx context.Context, sess *session.Context, code string) error {
	pending, err := loadPending(ctx, sess)
	if err != nil {
		return err
	}
	if pending == nil {
		return ErrInvalidCode
	}

	if !s.now().Before(pending.ExpiresAt) {
		return ErrCodeExpired
	}

	submitted := hashCode(code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(pending.CodeHash)) != 1 {
		return ErrInvalidCode
	}

	pending.Verified = true
	return sess.SetJSON(ctx, pendingResetKey, pending)
}

// ResetPassword replaces the password of the verified email and clears the
// pending reset, so the same verification cannot be used twice.
func (s *PasswordResetService) ResetPassword(ctx context.Context, sess *session.Context, newPassword, confirmPassword string) error {
	pending, err := loadPending(ctx, sess)
	if err != nil {
		return err
	}
	if pending == nil || !pending.Verified || !s.now().Before(pending.ExpiresAt) {
		return ErrSessionExpired
	}

	if newPassword != confirmPassword {
		return ErrMismatch
	}

	account, err := s.accounts.GetByEmail(ctx, pending.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.accounts.UpdatePasswordHash(ctx, account.ID, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := sess.Clear(ctx, pendingResetKey); err != nil {
		return err
	}

	logger.Log.Info("Password reset completed", zap.Int64("account_id", account.ID))
	return nil
}

func loadPending(ctx context.Context, sess *session.Context) (*PendingReset, error) {
	var pending PendingReset
	ok, err := sess.GetJSON(ctx, pendingResetKey, &pending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &pending, nil
}

// generateResetCode returns a six-digit code uniform over [100000, 999999].
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
