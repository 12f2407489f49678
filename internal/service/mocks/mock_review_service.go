package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
)

type MockReviewService struct {
	mock.Mock
}

var _ service.ReviewService = (*MockReviewService)(nil)

func (m *MockReviewService) Create(ctx context.Context, actor service.Actor, in service.CreateReviewInput, images []service.Upload) (*model.Review, error) {
	args := m.Called(ctx, actor, in, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewService) ListByService(ctx context.Context, serviceID string, limit, offset int) (*service.ServiceReviews, error) {
	args := m.Called(ctx, serviceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ServiceReviews), args.Error(1)
}

func (m *MockReviewService) ListMine(ctx context.Context, actor service.Actor, limit, offset int) (*service.ListResult[model.Review], error) {
	args := m.Called(ctx, actor, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Review]), args.Error(1)
}

func (m *MockReviewService) Get(ctx context.Context, id string) (*model.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewService) Update(ctx context.Context, actor service.Actor, id string, in service.UpdateReviewInput) (*model.Review, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, actor service.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}
