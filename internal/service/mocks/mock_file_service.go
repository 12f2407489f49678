package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
)

type MockFileService struct {
	mock.Mock
}

var _ service.FileService = (*MockFileService)(nil)

func (m *MockFileService) Upload(ctx context.Context, actor service.Actor, u service.Upload) (*model.File, error) {
	args := m.Called(ctx, actor, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, actor service.Actor, limit, offset int) (*service.ListResult[model.File], error) {
	args := m.Called(ctx, actor, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.File]), args.Error(1)
}

func (m *MockFileService) Get(ctx context.Context, actor service.Actor, id string) (*service.FileWithURL, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileWithURL), args.Error(1)
}

func (m *MockFileService) Download(ctx context.Context, actor service.Actor, id string) (io.ReadCloser, *model.File, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.File), args.Error(2)
}

func (m *MockFileService) Delete(ctx context.Context, actor service.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}
