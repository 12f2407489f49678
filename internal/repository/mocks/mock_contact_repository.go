package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/repository"
)

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, msg *model.ContactMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockContactRepository) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactMessage), args.Error(1)
}

func (m *MockContactRepository) List(ctx context.Context, status model.ContactStatus, pq repository.PageQuery) (*repository.PageResult[model.ContactMessage], error) {
	args := m.Called(ctx, status, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ContactMessage]), args.Error(1)
}

func (m *MockContactRepository) Update(ctx context.Context, msg *model.ContactMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
