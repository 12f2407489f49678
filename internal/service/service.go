// Package service holds the use cases of the platform. Services talk to
// repositories, storage and the notification channels and return
// *apperror.AppError values the HTTP layer renders as is.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
)

var (
	ErrIDRequired = apperror.BadRequest("ID_REQUIRED", "id is required")
	ErrForbidden  = apperror.Forbidden("FORBIDDEN", "you are not allowed to access this resource")
	ErrReaderNil  = errors.New("reader is nil")
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Actor is the authenticated caller of a use case. The zero value is an
// anonymous visitor.
type Actor struct {
	UserID string
	Role   model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// ListResult is the service-level DTO for paginated listings.
type ListResult[T any] struct {
	Items  []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func pageQuery(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

func listResult[T any](res *repository.PageResult[T], pq repository.PageQuery) *ListResult[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Items: items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// notFoundOr maps repository.ErrNotFound to notFound and hides anything else
// behind an internal error.
func notFoundOr(err error, notFound *apperror.AppError) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperror.Internal(err)
}

// deliver sends a courtesy email. Failures are logged, never returned: the
// use case already succeeded.
func deliver(ctx context.Context, sender mailer.Sender, e mailer.Email) {
	if err := sender.Send(ctx, e); err != nil {
		logger.FromContext(ctx).Error().Err(err).
			Str("subject", e.Subject).
			Msg("email not delivered")
	}
}
