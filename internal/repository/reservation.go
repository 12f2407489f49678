package repository

import (
	"context"

	"llouest/internal/model"
)

// ReservationFilter narrows reservation listings. Deleted reservations are
// excluded unless Status asks for them.
type ReservationFilter struct {
	UserID    string
	Status    model.ReservationStatus
	ServiceID string
}

type ReservationRepository interface {
	Create(ctx context.Context, r *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	List(ctx context.Context, f ReservationFilter, pq PageQuery) (*PageResult[model.Reservation], error)
	// UpdateStatus writes status, reply, replied_at and updated_at.
	UpdateStatus(ctx context.Context, r *model.Reservation) error
}
