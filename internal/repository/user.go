package repository

import (
	"context"
	"time"

	"llouest/internal/model"
)

// UserFilter narrows admin user listings. Zero values match everything.
type UserFilter struct {
	Role  model.Role
	Query string
}

// UserRepository persists users. Emails are compared case-insensitively.
type UserRepository interface {
	// Create inserts the user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Update writes every mutable column except the password hash.
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, f UserFilter, pq PageQuery) (*PageResult[model.User], error)
	ListAdmins(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id string) error
}
