package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/auth"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
)

var (
	ErrEmailTaken         = apperror.Conflict("EMAIL_TAKEN", "an account already uses this email")
	ErrInvalidCredentials = apperror.Unauthorized("INVALID_CREDENTIALS", "invalid email or password")
	ErrEmailNotVerified   = apperror.Forbidden("EMAIL_NOT_VERIFIED", "email not verified, a new code has been sent")
	ErrAlreadyVerified    = apperror.Conflict("ALREADY_VERIFIED", "email already verified")
	ErrSameEmail          = apperror.BadRequest("SAME_EMAIL", "the new email is your current email")
	ErrPasswordTooLong    = apperror.BadRequest("PASSWORD_TOO_LONG", "password must be at most 72 bytes")
)

type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

type SigninInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyCodeInput struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type EmailChangeInput struct {
	NewEmail string `json:"new_email" validate:"required,email,max=254"`
}

type ConfirmEmailChangeInput struct {
	NewEmail string `json:"new_email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResult is returned on every successful sign-in.
type AuthResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *model.User `json:"user"`
}

// TokenIssuer signs access tokens for a user.
type TokenIssuer interface {
	Issue(u *model.User) (string, time.Time, error)
}

// AuthService covers account registration, sign-in and the code-confirmed
// account changes.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	VerifyEmail(ctx context.Context, in VerifyCodeInput) (*AuthResult, error)

	// ResendVerification is silent for unknown emails, like ForgotPassword.
	ResendVerification(ctx context.Context, email string) error
	Signin(ctx context.Context, in SigninInput) (*AuthResult, error)

	// ForgotPassword never reveals whether the email has an account.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error

	// RequestEmailChange sends a code to the new address.
	RequestEmailChange(ctx context.Context, actor Actor, in EmailChangeInput) error
	ConfirmEmailChange(ctx context.Context, actor Actor, in ConfirmEmailChangeInput) (*model.User, error)

	Me(ctx context.Context, actor Actor) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	challenges ChallengeService
	tokens     TokenIssuer
	mail       mailer.Sender
	tpl        *mailer.Templates
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UserRepository, challenges ChallengeService, tokens TokenIssuer, mail mailer.Sender, tpl *mailer.Templates) AuthService {
	return &authService{users: users, challenges: challenges, tokens: tokens, mail: mail, tpl: tpl}
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	t := now()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         model.RoleClient,
		Preferences:  model.DefaultPreferences(),
		CreatedAt:    t,
		UpdatedAt:    t,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, apperror.Internal(err)
	}

	// The account exists either way; the client can ask for another code.
	if err := s.challenges.Issue(ctx, model.PurposeSignup, email, map[string]string{"user_id": u.ID}, false); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("signup code not sent")
	}
	return u, nil
}

func (s *authService) VerifyEmail(ctx context.Context, in VerifyCodeInput) (*AuthResult, error) {
	if _, err := s.challenges.Verify(ctx, model.PurposeSignup, in.Email, in.Code); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	if !u.EmailVerified {
		u.EmailVerified = true
		u.UpdatedAt = now()
		if err := s.users.Update(ctx, u); err != nil {
			return nil, apperror.Internal(err)
		}
		deliver(ctx, s.mail, s.tpl.Welcome(u))
	}
	return s.signin(ctx, u)
}

func (s *authService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperror.Internal(err)
	}
	if u.EmailVerified {
		return ErrAlreadyVerified
	}
	return s.challenges.Issue(ctx, model.PurposeSignup, u.Email, map[string]string{"user_id": u.ID}, true)
}

func (s *authService) Signin(ctx context.Context, in SigninInput) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}

	if !u.EmailVerified {
		// A code sent moments ago still counts as sent.
		err := s.challenges.Issue(ctx, model.PurposeSignup, u.Email, map[string]string{"user_id": u.ID}, true)
		if err != nil && !errors.Is(err, ErrTooManyResends) {
			return nil, err
		}
		return nil, ErrEmailNotVerified.WithDetail("redirect", model.PurposeSignup.RedirectPath())
	}
	return s.signin(ctx, u)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperror.Internal(err)
	}
	return s.challenges.Issue(ctx, model.PurposePasswordReset, u.Email, map[string]string{"user_id": u.ID}, false)
}

func (s *authService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}
	c, err := s.challenges.Verify(ctx, model.PurposePasswordReset, in.Email, in.Code)
	if err != nil {
		return err
	}

	u, err := s.users.FindByEmail(ctx, c.Email)
	if err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	return nil
}

func (s *authService) RequestEmailChange(ctx context.Context, actor Actor, in EmailChangeInput) error {
	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	newEmail := normalizeEmail(in.NewEmail)
	if newEmail == u.Email {
		return ErrSameEmail
	}
	taken, err := s.users.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return apperror.Internal(err)
	}
	if taken {
		return ErrEmailTaken
	}
	return s.challenges.Issue(ctx, model.PurposeEmailChange, newEmail, map[string]string{"user_id": u.ID}, false)
}

func (s *authService) ConfirmEmailChange(ctx context.Context, actor Actor, in ConfirmEmailChangeInput) (*model.User, error) {
	c, err := s.challenges.Verify(ctx, model.PurposeEmailChange, in.NewEmail, in.Code)
	if err != nil {
		return nil, err
	}
	if c.Payload["user_id"] != actor.UserID {
		return nil, ErrForbidden
	}

	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	oldEmail := u.Email
	u.Email = c.Email
	u.EmailVerified = true
	u.UpdatedAt = now()
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, notFoundOr(err, ErrUserNotFound)
	}

	deliver(ctx, s.mail, s.tpl.EmailChanged(u.Name, oldEmail, u.Email))
	return u, nil
}

func (s *authService) Me(ctx context.Context, actor Actor) (*model.User, error) {
	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *authService) signin(ctx context.Context, u *model.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	t := now()
	if err := s.users.TouchLogin(ctx, u.ID, t); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("last login not recorded")
	} else {
		u.LastLoginAt = &t
	}
	return &AuthResult{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp, User: u}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", apperror.Internal(err)
	}
	return hash, nil
}
