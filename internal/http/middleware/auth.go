package middleware

import (
	"context"
	"errors"
	"slices"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/apperror"
	"llouest/internal/auth"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/service"
)

// ActorLocalKey holds the authenticated service.Actor in Fiber's context locals.
const ActorLocalKey = "actor"

var (
	ErrUnauthorized = apperror.Unauthorized("UNAUTHORIZED", "authentication required")
	ErrTokenExpired = apperror.Unauthorized("TOKEN_EXPIRED", "access token expired")
	ErrInvalidToken = apperror.Unauthorized("INVALID_TOKEN", "invalid access token")
	ErrNoAccount    = apperror.Unauthorized("ACCOUNT_NOT_FOUND", "the account behind this token no longer exists")
	ErrRole         = apperror.Forbidden("INSUFFICIENT_ROLE", "you are not allowed to perform this action")
)

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Accounts resolves the user behind a token. repository.UserRepository
// satisfies it.
type Accounts interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth rejects requests without a valid bearer token. EventSource
// clients cannot set headers, so a missing header falls back to the
// access_token query parameter. The role comes from the stored account, not
// the token, so demotions and deletions apply immediately.
func RequireAuth(p TokenParser, accounts Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := authenticate(c, p, accounts)
		if err != nil {
			return err
		}
		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// OptionalAuth sets the actor when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(p TokenParser, accounts Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := authenticate(c, p, accounts)
		switch {
		case errors.Is(err, ErrUnauthorized):
			return c.Next()
		case err != nil:
			return err
		}
		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if actor.Anonymous() {
			return ErrUnauthorized
		}
		if !slices.Contains(roles, actor.Role) {
			return ErrRole
		}
		return c.Next()
	}
}

// ActorFrom returns the caller, or the zero Actor for anonymous requests.
func ActorFrom(c *fiber.Ctx) service.Actor {
	a, _ := c.Locals(ActorLocalKey).(service.Actor)
	return a
}

func authenticate(c *fiber.Ctx, p TokenParser, accounts Accounts) (service.Actor, error) {
	header := c.Get(fiber.HeaderAuthorization)
	var token string
	if header == "" {
		token = c.Query("access_token")
		if token == "" {
			return service.Actor{}, ErrUnauthorized
		}
	} else {
		t, err := auth.ParseBearer(header)
		if err != nil {
			return service.Actor{}, ErrInvalidToken
		}
		token = t
	}

	claims, err := p.Parse(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return service.Actor{}, ErrTokenExpired
	case err != nil:
		return service.Actor{}, ErrInvalidToken
	}

	u, err := accounts.FindByID(c.UserContext(), claims.Subject)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return service.Actor{}, ErrNoAccount
	case err != nil:
		return service.Actor{}, apperror.Internal(err)
	}
	return service.Actor{UserID: u.ID, Role: u.Role}, nil
}
