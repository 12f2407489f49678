package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const challengeColumns = `id, purpose, email, code_hash, payload, expires_at, attempts, resend_count,
	window_start, created_at`

// ChallengePostgres stores pending codes in code_challenges, unique on (purpose, email).
type ChallengePostgres struct {
	db *sqlx.DB
}

func NewChallengePostgres(db *sqlx.DB) *ChallengePostgres {
	return &ChallengePostgres{db: db}
}

var _ repository.ChallengeRepository = (*ChallengePostgres)(nil)

func (r *ChallengePostgres) Find(ctx context.Context, purpose model.ChallengePurpose, email string) (*model.Challenge, error) {
	var c model.Challenge
	err := r.db.GetContext(ctx, &c,
		`SELECT `+challengeColumns+` FROM code_challenges WHERE purpose = $1 AND email = $2`,
		purpose, strings.ToLower(email))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// Upsert runs in a transaction so the replaced row and the new one are never both visible.
func (r *ChallengePostgres) Upsert(ctx context.Context, c *model.Challenge) error {
	const q = `
		INSERT INTO code_challenges (id, purpose, email, code_hash, payload, expires_at, attempts,
			resend_count, window_start, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (purpose, email) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts,
			resend_count = EXCLUDED.resend_count,
			window_start = EXCLUDED.window_start,
			created_at = EXCLUDED.created_at
	`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, q,
		c.ID, c.Purpose, strings.ToLower(c.Email), c.CodeHash, c.Payload, c.ExpiresAt,
		c.Attempts, c.ResendCount, c.WindowStart, c.CreatedAt,
	); err != nil {
		return mapErr(err)
	}
	return tx.Commit()
}

func (r *ChallengePostgres) IncrementAttempts(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE code_challenges SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *ChallengePostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM code_challenges WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *ChallengePostgres) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM code_challenges WHERE expires_at < $1`, before)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
