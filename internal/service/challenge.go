package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"llouest/internal/apperror"
	"llouest/internal/config"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
)

var (
	ErrChallengeNotFound = apperror.NotFound("CODE_NOT_FOUND", "no pending code for this email")
	ErrChallengeExpired  = apperror.Gone("CODE_EXPIRED", "the code has expired, a new one has been sent")
	ErrTooManyAttempts   = apperror.TooManyRequests("TOO_MANY_ATTEMPTS", "too many attempts, try again later")
	ErrTooManyResends    = apperror.TooManyRequests("TOO_MANY_RESENDS", "too many codes requested, try again later")
	ErrInvalidCode       = apperror.BadRequest("INVALID_CODE", "invalid code")
	ErrEmailDelivery     = apperror.Unavailable("EMAIL_DELIVERY_FAILED", "the email could not be sent, try again later")
)

const minPurgeGrace = 24 * time.Hour

// ChallengeService runs the one-time code flow shared by signup verification,
// password reset and email change. At most one code is pending per
// (purpose, email); issuing a new one replaces it.
type ChallengeService interface {
	// Issue generates a fresh code, stores its hash and emails it. Any
	// reissue inside the resend window counts against the resend limit and
	// keeps the attempts already spent; isResend only marks a first issue
	// as a resend.
	Issue(ctx context.Context, purpose model.ChallengePurpose, email string, payload map[string]string, isResend bool) error

	// Verify checks code and consumes the challenge on success. An expired
	// challenge is reissued and ErrChallengeExpired returned.
	Verify(ctx context.Context, purpose model.ChallengePurpose, email, code string) (*model.Challenge, error)

	// Resend reissues an existing challenge with its stored payload.
	Resend(ctx context.Context, purpose model.ChallengePurpose, email string) error

	// Cancel drops the pending challenge, if any.
	Cancel(ctx context.Context, purpose model.ChallengePurpose, email string) error

	// PurgeExpired deletes challenges that expired at least a day ago.
	// Recently expired rows stay so Verify can still reissue them.
	PurgeExpired(ctx context.Context) (int64, error)
}

type challengeService struct {
	repo    repository.ChallengeRepository
	mail    mailer.Sender
	tpl     *mailer.Templates
	cfg     config.ChallengeConfig
	metrics *Metrics
}

// NewChallengeService constructs a new ChallengeService.
func NewChallengeService(repo repository.ChallengeRepository, mail mailer.Sender, tpl *mailer.Templates, cfg config.ChallengeConfig, metrics *Metrics) ChallengeService {
	return &challengeService{repo: repo, mail: mail, tpl: tpl, cfg: cfg, metrics: metrics}
}

func (s *challengeService) Issue(ctx context.Context, purpose model.ChallengePurpose, email string, payload map[string]string, isResend bool) error {
	email = normalizeEmail(email)
	existing, err := s.repo.Find(ctx, purpose, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal(err)
	}

	t := now()
	windowStart := t
	resendCount := 0
	attempts := 0
	if existing != nil && t.Before(existing.WindowStart.Add(s.cfg.ResendWindow)) {
		if existing.ResendCount >= s.cfg.MaxResends {
			return ErrTooManyResends
		}
		windowStart = existing.WindowStart
		resendCount = existing.ResendCount + 1
		attempts = existing.Attempts
	} else if isResend {
		resendCount = 1
	}

	code, err := generateCode()
	if err != nil {
		return apperror.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(fmt.Errorf("hash code: %w", err))
	}

	c := &model.Challenge{
		ID:          uuid.NewString(),
		Purpose:     purpose,
		Email:       email,
		CodeHash:    string(hash),
		Payload:     payload,
		ExpiresAt:   t.Add(s.cfg.CodeTTL),
		Attempts:    attempts,
		ResendCount: resendCount,
		WindowStart: windowStart,
		CreatedAt:   t,
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return apperror.Internal(err)
	}
	s.metrics.challengesIssued.WithLabelValues(string(purpose)).Inc()

	if err := s.mail.Send(ctx, s.tpl.Code(purpose, email, code, s.cfg.CodeTTL)); err != nil {
		logger.FromContext(ctx).Error().Err(err).
			Str("purpose", string(purpose)).
			Msg("verification email not delivered")
		return ErrEmailDelivery.Wrap(err)
	}
	return nil
}

func (s *challengeService) Verify(ctx context.Context, purpose model.ChallengePurpose, email, code string) (*model.Challenge, error) {
	email = normalizeEmail(email)
	c, err := s.repo.Find(ctx, purpose, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.outcome(purpose, "not_found")
			return nil, ErrChallengeNotFound
		}
		return nil, apperror.Internal(err)
	}

	if c.Expired(now()) {
		s.outcome(purpose, "expired")
		if err := s.Issue(ctx, purpose, email, c.Payload, true); err != nil {
			return nil, err
		}
		return nil, ErrChallengeExpired.WithDetail("redirect", purpose.RedirectPath())
	}

	if c.Attempts >= s.cfg.MaxAttempts {
		s.outcome(purpose, "locked")
		return nil, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		if err := s.repo.IncrementAttempts(ctx, c.ID); err != nil {
			return nil, apperror.Internal(err)
		}
		s.outcome(purpose, "invalid")
		return nil, ErrInvalidCode.WithDetail("attempts_left", s.cfg.MaxAttempts-c.Attempts-1)
	}

	// A concurrent submission that consumed the row first wins.
	if err := s.repo.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.outcome(purpose, "not_found")
			return nil, ErrChallengeNotFound
		}
		return nil, apperror.Internal(err)
	}
	s.outcome(purpose, "success")
	return c, nil
}

func (s *challengeService) Resend(ctx context.Context, purpose model.ChallengePurpose, email string) error {
	c, err := s.repo.Find(ctx, purpose, normalizeEmail(email))
	if err != nil {
		return notFoundOr(err, ErrChallengeNotFound)
	}
	return s.Issue(ctx, purpose, email, c.Payload, true)
}

func (s *challengeService) Cancel(ctx context.Context, purpose model.ChallengePurpose, email string) error {
	c, err := s.repo.Find(ctx, purpose, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperror.Internal(err)
	}
	if err := s.repo.Delete(ctx, c.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal(err)
	}
	return nil
}

func (s *challengeService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, now().Add(-s.purgeGrace()))
}

// purgeGrace keeps expired rows for at least a day, and never less than the
// resend window, so a late Verify still answers CODE_EXPIRED.
func (s *challengeService) purgeGrace() time.Duration {
	if s.cfg.ResendWindow > minPurgeGrace {
		return s.cfg.ResendWindow
	}
	return minPurgeGrace
}

func (s *challengeService) outcome(purpose model.ChallengePurpose, outcome string) {
	s.metrics.challengeVerifications.WithLabelValues(string(purpose), outcome).Inc()
}

// generateCode returns a uniformly random code in 100000..999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
