package repository

import (
	"context"
	"time"

	"llouest/internal/model"
)

// ChallengeRepository stores pending verification codes, one per (purpose, email).
type ChallengeRepository interface {
	Find(ctx context.Context, purpose model.ChallengePurpose, email string) (*model.Challenge, error)
	// Upsert replaces any existing challenge for the same (purpose, email).
	Upsert(ctx context.Context, c *model.Challenge) error
	IncrementAttempts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes challenges that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
