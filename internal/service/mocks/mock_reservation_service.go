package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
)

type MockReservationService struct {
	mock.Mock
}

var _ service.ReservationService = (*MockReservationService)(nil)

func (m *MockReservationService) Create(ctx context.Context, actor service.Actor, in service.CreateReservationInput) (*model.Reservation, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Get(ctx context.Context, actor service.Actor, id string) (*model.Reservation, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) ListMine(ctx context.Context, actor service.Actor, status model.ReservationStatus, limit, offset int) (*service.ListResult[model.Reservation], error) {
	args := m.Called(ctx, actor, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Reservation]), args.Error(1)
}

func (m *MockReservationService) List(ctx context.Context, f service.ReservationListFilter) (*service.ListResult[model.Reservation], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Reservation]), args.Error(1)
}

func (m *MockReservationService) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) (*model.Reservation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Reply(ctx context.Context, id string, in service.ReplyInput) (*model.Reservation, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, actor service.Actor, id string) (*model.Reservation, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
