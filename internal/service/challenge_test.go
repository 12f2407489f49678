package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"llouest/internal/mailer"
	mailMocks "llouest/internal/mailer/mocks"
	"llouest/internal/model"
	"llouest/internal/repository"
	repoMocks "llouest/internal/repository/mocks"
)

func hashCode(t *testing.T, code string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}

func TestChallengeService_Issue(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	tests := []struct {
		name       string
		isResend   bool
		setupMocks func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender)
		wantErr    error
		check      func(t *testing.T, c *model.Challenge)
	}{
		{
			name: "fresh challenge",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(nil, repository.ErrNotFound)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
					return e.To == "jeanne@example.com"
				})).Return(nil)
			},
			check: func(t *testing.T, c *model.Challenge) {
				assert.Equal(t, "jeanne@example.com", c.Email)
				assert.Equal(t, fixedNow.Add(testChallengeConfig().CodeTTL), c.ExpiresAt)
				assert.Equal(t, 0, c.ResendCount)
				assert.Equal(t, fixedNow, c.WindowStart)
				assert.Equal(t, 0, c.Attempts)
				assert.NotEmpty(t, c.CodeHash)
				assert.Len(t, c.CodeHash, 60, "bcrypt hash, never the clear code")
			},
		},
		{
			name:     "resend inside window increments count",
			isResend: true,
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					ResendCount: 1,
					WindowStart: fixedNow.Add(-5*time.Minute),
				}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, c *model.Challenge) {
				assert.Equal(t, 2, c.ResendCount)
				assert.Equal(t, fixedNow.Add(-5*time.Minute), c.WindowStart)
			},
		},
		{
			name:     "resend after window starts a new one",
			isResend: true,
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					ResendCount: 3,
					WindowStart: fixedNow.Add(-11*time.Minute),
				}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, c *model.Challenge) {
				assert.Equal(t, 1, c.ResendCount)
				assert.Equal(t, fixedNow, c.WindowStart)
			},
		},
		{
			name: "reissue inside window counts as a resend and keeps attempts",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					Attempts:    4,
					ResendCount: 0,
					WindowStart: fixedNow.Add(-2*time.Minute),
				}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, c *model.Challenge) {
				assert.Equal(t, 1, c.ResendCount)
				assert.Equal(t, 4, c.Attempts)
				assert.Equal(t, fixedNow.Add(-2*time.Minute), c.WindowStart)
			},
		},
		{
			name: "fresh window resets attempts",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					Attempts:    5,
					ResendCount: 3,
					WindowStart: fixedNow.Add(-20*time.Minute),
				}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, c *model.Challenge) {
				assert.Equal(t, 0, c.ResendCount)
				assert.Equal(t, 0, c.Attempts)
				assert.Equal(t, fixedNow, c.WindowStart)
			},
		},
		{
			name: "reissue limit reached without resend flag",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					ResendCount: 3,
					WindowStart: fixedNow.Add(-time.Minute),
				}, nil)
			},
			wantErr: ErrTooManyResends,
		},
		{
			name:     "resend limit reached",
			isResend: true,
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(&model.Challenge{
					ResendCount: 3,
					WindowStart: fixedNow.Add(-time.Minute),
				}, nil)
			},
			wantErr: ErrTooManyResends,
		},
		{
			name: "repository failure",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(nil, errors.New("db down"))
			},
			wantErr: errInternal,
		},
		{
			name: "email not delivered",
			setupMocks: func(mRepo *repoMocks.MockChallengeRepository, mMail *mailMocks.MockSender) {
				mRepo.On("Find", ctx, model.PurposeSignup, "jeanne@example.com").Return(nil, repository.ErrNotFound)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil)
				mMail.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))
			},
			wantErr: ErrEmailDelivery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockChallengeRepository)
			mMail := new(mailMocks.MockSender)
			metrics := testMetrics(t)
			svc := NewChallengeService(mRepo, mMail, testTemplates(), testChallengeConfig(), metrics)
			tt.setupMocks(mRepo, mMail)

			err := svc.Issue(ctx, model.PurposeSignup, " Jeanne@Example.com ", nil, tt.isResend)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				stored := mRepo.Calls[1].Arguments.Get(1).(*model.Challenge)
				tt.check(t, stored)
				assert.Equal(t, 1.0, testutil.ToFloat64(metrics.challengesIssued.WithLabelValues("signup_verification")))
			}

			mRepo.AssertExpectations(t)
			mMail.AssertExpectations(t)
		})
	}
}

func TestChallengeService_Verify(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	valid := func(attempts int) *model.Challenge {
		return &model.Challenge{
			ID:          "ch-1",
			Purpose:     model.PurposePasswordReset,
			Email:       "jeanne@example.com",
			CodeHash:    hashCode(t, "482913"),
			Payload:     model.StringMap{"user_id": "u1"},
			ExpiresAt:   fixedNow.Add(time.Minute),
			Attempts:    attempts,
			WindowStart: fixedNow.Add(-time.Minute),
		}
	}

	t.Run("match consumes the challenge", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		metrics := testMetrics(t)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), metrics)

		mRepo.On("Find", ctx, model.PurposePasswordReset, "jeanne@example.com").Return(valid(0), nil)
		mRepo.On("Delete", ctx, "ch-1").Return(nil)

		c, err := svc.Verify(ctx, model.PurposePasswordReset, "jeanne@example.com", "482913")
		require.NoError(t, err)
		assert.Equal(t, "u1", c.Payload["user_id"])
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.challengeVerifications.WithLabelValues("password_reset", "success")))
		mRepo.AssertExpectations(t)
	})

	t.Run("mismatch counts an attempt", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

		mRepo.On("Find", ctx, model.PurposePasswordReset, "jeanne@example.com").Return(valid(1), nil)
		mRepo.On("IncrementAttempts", ctx, "ch-1").Return(nil)

		_, err := svc.Verify(ctx, model.PurposePasswordReset, "jeanne@example.com", "000000")
		ae := assertAppError(t, err, http.StatusBadRequest, "INVALID_CODE")
		assert.Equal(t, 3, ae.Detail["attempts_left"])
		mRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mRepo.AssertExpectations(t)
	})

	t.Run("locked after max attempts", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

		mRepo.On("Find", ctx, model.PurposePasswordReset, "jeanne@example.com").Return(valid(5), nil)

		_, err := svc.Verify(ctx, model.PurposePasswordReset, "jeanne@example.com", "482913")
		assertAppError(t, err, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS")
		mRepo.AssertExpectations(t)
	})

	t.Run("code consumed by a concurrent submission", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		metrics := testMetrics(t)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), metrics)

		mRepo.On("Find", ctx, model.PurposePasswordReset, "jeanne@example.com").Return(valid(0), nil)
		mRepo.On("Delete", ctx, "ch-1").Return(repository.ErrNotFound)

		c, err := svc.Verify(ctx, model.PurposePasswordReset, "jeanne@example.com", "482913")
		assert.Nil(t, c)
		assertAppError(t, err, http.StatusNotFound, "CODE_NOT_FOUND")
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.challengeVerifications.WithLabelValues("password_reset", "success")))
		mRepo.AssertExpectations(t)
	})

	t.Run("no pending challenge", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

		mRepo.On("Find", ctx, model.PurposePasswordReset, "ghost@example.com").Return(nil, repository.ErrNotFound)

		_, err := svc.Verify(ctx, model.PurposePasswordReset, "ghost@example.com", "482913")
		assertAppError(t, err, http.StatusNotFound, "CODE_NOT_FOUND")
	})

	t.Run("expired code is reissued with a redirect", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		mMail := new(mailMocks.MockSender)
		svc := NewChallengeService(mRepo, mMail, testTemplates(), testChallengeConfig(), testMetrics(t))

		expired := valid(0)
		expired.ExpiresAt = fixedNow.Add(-time.Minute)
		mRepo.On("Find", ctx, model.PurposePasswordReset, "jeanne@example.com").Return(expired, nil)
		mRepo.On("Upsert", ctx, mock.MatchedBy(func(c *model.Challenge) bool {
			return c.Payload["user_id"] == "u1" && c.ResendCount == 1 && c.ExpiresAt.After(fixedNow)
		})).Return(nil)
		mMail.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
			return e.To == "jeanne@example.com"
		})).Return(nil)

		_, err := svc.Verify(ctx, model.PurposePasswordReset, "jeanne@example.com", "482913")
		ae := assertAppError(t, err, http.StatusGone, "CODE_EXPIRED")
		assert.Equal(t, "/reset-password", ae.Detail["redirect"])
		mRepo.AssertExpectations(t)
		mMail.AssertExpectations(t)
	})
}

func TestChallengeService_Resend(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	t.Run("keeps the stored payload", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		mMail := new(mailMocks.MockSender)
		svc := NewChallengeService(mRepo, mMail, testTemplates(), testChallengeConfig(), testMetrics(t))

		existing := &model.Challenge{Payload: model.StringMap{"user_id": "u9"}, WindowStart: fixedNow}
		mRepo.On("Find", ctx, model.PurposeEmailChange, "new@example.com").Return(existing, nil)
		mRepo.On("Upsert", ctx, mock.MatchedBy(func(c *model.Challenge) bool {
			return c.Payload["user_id"] == "u9"
		})).Return(nil)
		mMail.On("Send", ctx, mock.Anything).Return(nil)

		assert.NoError(t, svc.Resend(ctx, model.PurposeEmailChange, "new@example.com"))
		mRepo.AssertExpectations(t)
	})

	t.Run("requires a pending challenge", func(t *testing.T) {
		mRepo := new(repoMocks.MockChallengeRepository)
		svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

		mRepo.On("Find", ctx, model.PurposeEmailChange, "new@example.com").Return(nil, repository.ErrNotFound)

		assert.ErrorIs(t, svc.Resend(ctx, model.PurposeEmailChange, "new@example.com"), ErrChallengeNotFound)
	})
}

func TestChallengeService_Cancel(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockChallengeRepository)
	svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

	mRepo.On("Find", ctx, model.PurposeSignup, "a@example.com").Return(&model.Challenge{ID: "ch-1"}, nil)
	mRepo.On("Delete", ctx, "ch-1").Return(nil)
	mRepo.On("Find", ctx, model.PurposeSignup, "b@example.com").Return(nil, repository.ErrNotFound)

	assert.NoError(t, svc.Cancel(ctx, model.PurposeSignup, "a@example.com"))
	assert.NoError(t, svc.Cancel(ctx, model.PurposeSignup, "b@example.com"))
	mRepo.AssertExpectations(t)
}

func TestChallengeService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)
	mRepo := new(repoMocks.MockChallengeRepository)
	svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), testChallengeConfig(), testMetrics(t))

	// A code that expired an hour ago must survive so Verify can still reissue it.
	mRepo.On("DeleteExpired", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		return !cutoff.After(fixedNow.Add(-24*time.Hour)) && cutoff.Before(fixedNow.Add(-time.Hour))
	})).Return(int64(4), nil)

	n, err := svc.PurgeExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)
	mRepo.AssertExpectations(t)
}

func TestChallengeService_PurgeExpired_LongWindow(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)
	mRepo := new(repoMocks.MockChallengeRepository)
	cfg := testChallengeConfig()
	cfg.ResendWindow = 48 * time.Hour
	svc := NewChallengeService(mRepo, new(mailMocks.MockSender), testTemplates(), cfg, testMetrics(t))

	mRepo.On("DeleteExpired", ctx, fixedNow.Add(-48*time.Hour)).Return(int64(0), nil)

	_, err := svc.PurgeExpired(ctx)
	assert.NoError(t, err)
	mRepo.AssertExpectations(t)
}
