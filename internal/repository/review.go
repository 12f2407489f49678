package repository

import (
	"context"

	"llouest/internal/model"
)

type ReviewFilter struct {
	ServiceID string
	UserID    string
}

type ReviewRepository interface {
	// Create returns ErrDuplicate when the user already reviewed the service.
	Create(ctx context.Context, r *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	List(ctx context.Context, f ReviewFilter, pq PageQuery) (*PageResult[model.Review], error)
	Summary(ctx context.Context, serviceID string) (*model.RatingSummary, error)
	Update(ctx context.Context, r *model.Review) error
	Delete(ctx context.Context, id string) error
}
