package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tiptop/backend/internal/mail"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/password"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/session"
)

const testCode = "482913"

type resetFixture struct {
	service  *PasswordResetService
	accounts *fakeAccounts
	mailer   *MockMailer
	sess     *session.Context
	now      time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()

	f := &resetFixture{
		accounts: newFakeAccounts(),
		mailer:   new(MockMailer),
		sess:     session.New("sid", session.NewMemoryStore(time.Hour)),
		now:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	hash, err := password.Hash("old-password")
	require.NoError(t, err)
	require.NoError(t, f.accounts.CreateWithLedger(context.Background(),
		&models.Account{Username: "jane", Email: "jane@example.com", PasswordHash: hash}, 0, RedeemValue))

	f.service = NewPasswordResetService(f.accounts, f.mailer, nil, 10*time.Minute)
	f.service.now = func() time.Time { return f.now }
	f.service.newCode = func() (string, error) { return testCode, nil }
	return f
}

func (f *resetFixture) pending(t *testing.T) *PendingReset {
	t.Helper()
	p, err := loadPending(context.Background(), f.sess)
	require.NoError(t, err)
	return p
}

func TestPasswordReset_FullFlow(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.mailer.On("Send", mock.Anything, "jane@example.com", mail.ResetSubject,
		mock.MatchedBy(func(html string) bool { return assert.Contains(t, html, testCode) }),
		mock.MatchedBy(func(text string) bool { return assert.Contains(t, text, testCode) })).
		Return(nil).Once()

	require.NoError(t, f.service.RequestCode(ctx, f.sess, "Jane@Example.com "))

	p := f.pending(t)
	require.NotNil(t, p)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.NotEqual(t, testCode, p.CodeHash)
	assert.False(t, p.Verified)
	assert.Equal(t, f.now.Add(10*time.Minute), p.ExpiresAt)

	require.NoError(t, f.service.VerifyCode(ctx, f.sess, testCode))
	assert.True(t, f.pending(t).Verified)

	require.NoError(t, f.service.ResetPassword(ctx, f.sess, "new-password", "new-password"))
	assert.Nil(t, f.pending(t))

	account, err := f.accounts.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, password.Verify("old-password", account.PasswordHash))
	assert.True(t, password.Verify("new-password", account.PasswordHash))

	err = f.service.ResetPassword(ctx, f.sess, "again", "again")
	assert.ErrorIs(t, err, ErrSessionExpired)

	f.mailer.AssertExpectations(t)
}

func TestPasswordReset_RequestCode(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email sends nothing and stores nothing", func(t *testing.T) {
		f := newResetFixture(t)

		err := f.service.RequestCode(ctx, f.sess, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, f.pending(t))
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivery failure keeps pending reset", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp: 421 service not available"))

		err := f.service.RequestCode(ctx, f.sess, "jane@example.com")
		assert.ErrorIs(t, err, ErrDeliveryFailure)
		assert.NotNil(t, f.pending(t))
	})

	t.Run("new request replaces previous code", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))
		require.NoError(t, f.service.VerifyCode(ctx, f.sess, testCode))

		f.service.newCode = func() (string, error) { return "111111", nil }
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))

		p := f.pending(t)
		assert.False(t, p.Verified)
		assert.ErrorIs(t, f.service.VerifyCode(ctx, f.sess, testCode), ErrInvalidCode)
		assert.NoError(t, f.service.VerifyCode(ctx, f.sess, "111111"))
		f.mailer.AssertNumberOfCalls(t, "Send", 2)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newResetFixture(t)
		f.service.limiter = denyLimiter{}

		err := f.service.RequestCode(ctx, f.sess, "jane@example.com")
		assert.ErrorIs(t, err, ErrTooManyRequests)
		assert.Nil(t, f.pending(t))
	})

	t.Run("lookup failure", func(t *testing.T) {
		accounts := new(MockAccountStore)
		accounts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, errors.New("connection reset"))

		service := NewPasswordResetService(accounts, new(MockMailer), nil, time.Minute)
		sess := session.New("sid", session.NewMemoryStore(time.Hour))

		err := service.RequestCode(ctx, sess, "jane@example.com")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestPasswordReset_VerifyCode(t *testing.T) {
	ctx := context.Background()

	t.Run("without pending reset", func(t *testing.T) {
		f := newResetFixture(t)
		assert.ErrorIs(t, f.service.VerifyCode(ctx, f.sess, testCode), ErrInvalidCode)
	})

	t.Run("wrong code leaves state unchanged", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))
		before := f.pending(t)

		assert.ErrorIs(t, f.service.VerifyCode(ctx, f.sess, "000000"), ErrInvalidCode)
		assert.Equal(t, before, f.pending(t))

		assert.ErrorIs(t, f.service.ResetPassword(ctx, f.sess, "x", "x"), ErrSessionExpired)
	})

	t.Run("verifying twice succeeds", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))

		assert.NoError(t, f.service.VerifyCode(ctx, f.sess, testCode))
		assert.NoError(t, f.service.VerifyCode(ctx, f.sess, testCode))
	})

	t.Run("padded code is not trimmed", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))
		before := f.pending(t)

		for _, code := range []string{" " + testCode + "\n", testCode + " ", "\t" + testCode} {
			assert.ErrorIs(t, f.service.VerifyCode(ctx, f.sess, code), ErrInvalidCode, "code %q", code)
		}
		assert.Equal(t, before, f.pending(t))
		assert.False(t, f.pending(t).Verified)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))

		f.now = f.now.Add(10 * time.Minute)
		assert.ErrorIs(t, f.service.VerifyCode(ctx, f.sess, testCode), ErrCodeExpired)
	})
}

func TestPasswordReset_ResetPassword(t *testing.T) {
	ctx := context.Background()

	verified := func(t *testing.T) *resetFixture {
		f := newResetFixture(t)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, f.service.RequestCode(ctx, f.sess, "jane@example.com"))
		require.NoError(t, f.service.VerifyCode(ctx, f.sess, testCode))
		return f
	}

	t.Run("mismatch keeps verification", func(t *testing.T) {
		f := verified(t)

		assert.ErrorIs(t, f.service.ResetPassword(ctx, f.sess, "new-password", "other"), ErrMismatch)
		assert.True(t, f.pending(t).Verified)
		assert.NoError(t, f.service.ResetPassword(ctx, f.sess, "new-password", "new-password"))
	})

	t.Run("expired after verification", func(t *testing.T) {
		f := verified(t)
		f.now = f.now.Add(11 * time.Minute)

		assert.ErrorIs(t, f.service.ResetPassword(ctx, f.sess, "new-password", "new-password"), ErrSessionExpired)
	})

	t.Run("account vanished", func(t *testing.T) {
		f := verified(t)
		delete(f.accounts.byID, 1)

		assert.ErrorIs(t, f.service.ResetPassword(ctx, f.sess, "new-password", "new-password"), ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		accounts := new(MockAccountStore)
		accounts.On("GetByEmail", mock.Anything, "jane@example.com").
			Return(&models.Account{ID: 1, Username: "jane", Email: "jane@example.com"}, nil)
		accounts.On("UpdatePasswordHash", mock.Anything, int64(1), mock.AnythingOfType("string")).
			Return(errors.New("deadlock detected"))

		mailer := new(MockMailer)
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		service := NewPasswordResetService(accounts, mailer, nil, time.Minute)
		service.newCode = func() (string, error) { return testCode, nil }
		sess := session.New("sid", session.NewMemoryStore(time.Hour))

		require.NoError(t, service.RequestCode(ctx, sess, "jane@example.com"))
		require.NoError(t, service.VerifyCode(ctx, sess, testCode))

		err := service.ResetPassword(ctx, sess, "new-password", "new-password")
		assert.Error(t, err)

		p, _ := loadPending(ctx, sess)
		assert.NotNil(t, p)
	})

	t.Run("update reports missing row", func(t *testing.T) {
		accounts := new(MockAccountStore)
		accounts.On("GetByEmail", mock.Anything, "jane@example.com").
			Return(&models.Account{ID: 1, Email: "jane@example.com"}, nil)
		accounts.On("UpdatePasswordHash", mock.Anything, int64(1), mock.Anything).Return(repository.ErrNotFound)

		service := NewPasswordResetService(accounts, nil, nil, time.Minute)
		sess := session.New("sid", session.NewMemoryStore(time.Hour))
		require.NoError(t, sess.SetJSON(ctx, pendingResetKey, PendingReset{
			Email: "jane@example.com", Verified: true, ExpiresAt: time.Now().Add(time.Minute),
		}))

		assert.ErrorIs(t, service.ResetPassword(ctx, sess, "pw", "pw"), ErrNotFound)
	})
}

func TestGenerateResetCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateResetCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) error { return ErrTooManyRequests }
