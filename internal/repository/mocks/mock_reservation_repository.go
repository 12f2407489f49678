package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/repository"
)

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, r *model.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, f repository.ReservationFilter, pq repository.PageQuery) (*repository.PageResult[model.Reservation], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Reservation]), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, r *model.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
