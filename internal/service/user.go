package service

import (
	"context"
	"errors"
	"fmt"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/sanitize"
	"llouest/internal/storage"
)

// cleanupPageSize bounds each listing while collecting a user's objects.
const cleanupPageSize = 100

var (
	ErrUserNotFound  = apperror.NotFound("USER_NOT_FOUND", "user not found")
	ErrInvalidRole   = apperror.BadRequest("INVALID_ROLE", "role must be client or admin")
	ErrOwnRoleChange = apperror.Conflict("OWN_ROLE_CHANGE", "you cannot change your own role")
)

// UpdateProfileInput is a partial update: nil fields are left untouched.
type UpdateProfileInput struct {
	Name     *string         `json:"name" validate:"omitempty,min=2,max=100"`
	Phone    *string         `json:"phone" validate:"omitempty,max=30"`
	Address  *string         `json:"address" validate:"omitempty,max=300"`
	Location *model.Location `json:"location"`
}

type UpdatePreferencesInput struct {
	Notifications *bool   `json:"notifications"`
	Language      *string `json:"language" validate:"omitempty,oneof=fr en"`
}

type RegisterDeviceInput struct {
	FCMToken string `json:"fcm_token" validate:"max=4096"`
}

type SetRoleInput struct {
	Role model.Role `json:"role" validate:"required"`
}

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	Role   model.Role
	Query  string
	Limit  int
	Offset int
}

// UserService manages profiles. The admin operations expect the caller to
// have checked the admin role already.
type UserService interface {
	GetProfile(ctx context.Context, actor Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*model.User, error)
	UpdatePreferences(ctx context.Context, actor Actor, in UpdatePreferencesInput) (*model.User, error)

	// RegisterDevice stores the push token of the caller's device. An empty
	// token unregisters it.
	RegisterDevice(ctx context.Context, actor Actor, in RegisterDeviceInput) error
	DeleteAccount(ctx context.Context, actor Actor) error

	List(ctx context.Context, f UserListFilter) (*ListResult[model.User], error)
	Get(ctx context.Context, id string) (*model.User, error)
	SetRole(ctx context.Context, actor Actor, id string, role model.Role) (*model.User, error)

	// Delete removes the stored objects of the user's reviews, files and
	// invoices, then the account. The rows cascade with it.
	Delete(ctx context.Context, id string) error
}

type userService struct {
	users    repository.UserRepository
	reviews  repository.ReviewRepository
	files    repository.FileRepository
	invoices repository.InvoiceRepository
	store    storage.Storage
}

// NewUserService constructs a new UserService.
func NewUserService(users repository.UserRepository, reviews repository.ReviewRepository, files repository.FileRepository, invoices repository.InvoiceRepository, store storage.Storage) UserService {
	return &userService{users: users, reviews: reviews, files: files, invoices: invoices, store: store}
}

func (s *userService) GetProfile(ctx context.Context, actor Actor) (*model.User, error) {
	return s.Get(ctx, actor.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*model.User, error) {
	return s.update(ctx, actor.UserID, func(u *model.User) {
		if in.Name != nil {
			u.Name = sanitize.Text(*in.Name)
		}
		if in.Phone != nil {
			u.Phone = sanitize.Text(*in.Phone)
		}
		if in.Address != nil {
			u.Address = sanitize.Text(*in.Address)
		}
		if in.Location != nil {
			loc := *in.Location
			loc.City = sanitize.Text(loc.City)
			u.Location = loc
		}
	})
}

func (s *userService) UpdatePreferences(ctx context.Context, actor Actor, in UpdatePreferencesInput) (*model.User, error) {
	return s.update(ctx, actor.UserID, func(u *model.User) {
		if in.Notifications != nil {
			u.Preferences.Notifications = *in.Notifications
		}
		if in.Language != nil {
			u.Preferences.Language = *in.Language
		}
	})
}

func (s *userService) RegisterDevice(ctx context.Context, actor Actor, in RegisterDeviceInput) error {
	_, err := s.update(ctx, actor.UserID, func(u *model.User) {
		u.Preferences.FCMToken = in.FCMToken
	})
	return err
}

func (s *userService) DeleteAccount(ctx context.Context, actor Actor) error {
	return s.Delete(ctx, actor.UserID)
}

func (s *userService) List(ctx context.Context, f UserListFilter) (*ListResult[model.User], error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, ErrInvalidRole
	}
	pq := pageQuery(f.Limit, f.Offset)
	res, err := s.users.List(ctx, repository.UserFilter{Role: f.Role, Query: f.Query}, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *userService) SetRole(ctx context.Context, actor Actor, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if id == actor.UserID {
		return nil, ErrOwnRoleChange
	}
	return s.update(ctx, id, func(u *model.User) {
		u.Role = role
	})
}

// Delete keeps the account when an object cannot be removed, so a retry can
// still find every key.
func (s *userService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	keys, err := s.objectKeys(ctx, id)
	if err != nil {
		return apperror.Internal(err)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return apperror.Internal(fmt.Errorf("delete storage: %w", err))
		}
	}
	logger.FromContext(ctx).Info().Str("user_id", id).Int("objects", len(keys)).Msg("user objects removed")

	if err := s.users.Delete(ctx, id); err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	return nil
}

// objectKeys lists every storage key owned by the user.
func (s *userService) objectKeys(ctx context.Context, userID string) ([]string, error) {
	reviews, err := collectPages(ctx, func(pq repository.PageQuery) (*repository.PageResult[model.Review], error) {
		return s.reviews.List(ctx, repository.ReviewFilter{UserID: userID}, pq)
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	files, err := collectPages(ctx, func(pq repository.PageQuery) (*repository.PageResult[model.File], error) {
		return s.files.List(ctx, userID, pq)
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	invoices, err := collectPages(ctx, func(pq repository.PageQuery) (*repository.PageResult[model.Invoice], error) {
		return s.invoices.ListByUser(ctx, userID, pq)
	})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	var keys []string
	for _, r := range reviews {
		keys = append(keys, r.Images...)
	}
	for _, f := range files {
		keys = append(keys, f.StoragePath)
	}
	for _, inv := range invoices {
		keys = append(keys, inv.StoragePath)
	}
	out := keys[:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

// collectPages walks a paginated listing to the end.
func collectPages[T any](ctx context.Context, fetch func(pq repository.PageQuery) (*repository.PageResult[T], error)) ([]T, error) {
	var all []T
	pq := repository.PageQuery{Limit: cleanupPageSize}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := fetch(pq)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		pq.Offset += len(res.Items)
		if len(res.Items) == 0 || pq.Offset >= res.Total {
			return all, nil
		}
	}
}

func (s *userService) update(ctx context.Context, id string, apply func(u *model.User)) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(u)
	u.UpdatedAt = now()
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}
