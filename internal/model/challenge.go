package model

import "time"

// ChallengePurpose names the flow a verification code belongs to.
type ChallengePurpose string

const (
	PurposeSignup        ChallengePurpose = "signup_verification"
	PurposePasswordReset ChallengePurpose = "password_reset"
	PurposeEmailChange   ChallengePurpose = "email_change"
)

func (p ChallengePurpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposePasswordReset, PurposeEmailChange:
		return true
	}
	return false
}

// RedirectPath is the front-end page where the user types a code of this purpose.
func (p ChallengePurpose) RedirectPath() string {
	switch p {
	case PurposePasswordReset:
		return "/reset-password"
	case PurposeEmailChange:
		return "/change-email"
	default:
		return "/verify-email"
	}
}

// Challenge is the single pending code for a (purpose, email) pair.
type Challenge struct {
	ID          string           `db:"id"`
	Purpose     ChallengePurpose `db:"purpose"`
	Email       string           `db:"email"`
	CodeHash    string           `db:"code_hash"`
	Payload     StringMap        `db:"payload"`
	ExpiresAt   time.Time        `db:"expires_at"`
	Attempts    int              `db:"attempts"`
	ResendCount int              `db:"resend_count"`
	WindowStart time.Time        `db:"window_start"`
	CreatedAt   time.Time        `db:"created_at"`
}

func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
