package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
)

type MockContactService struct {
	mock.Mock
}

var _ service.ContactService = (*MockContactService)(nil)

func (m *MockContactService) Create(ctx context.Context, in service.CreateContactInput) (*model.ContactMessage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactMessage), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context, status model.ContactStatus, limit, offset int) (*service.ListResult[model.ContactMessage], error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.ContactMessage]), args.Error(1)
}

func (m *MockContactService) Get(ctx context.Context, id string) (*model.ContactMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactMessage), args.Error(1)
}

func (m *MockContactService) Reply(ctx context.Context, id string, in service.ReplyInput) (*model.ContactMessage, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactMessage), args.Error(1)
}

func (m *MockContactService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
