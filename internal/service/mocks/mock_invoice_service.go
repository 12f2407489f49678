package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
)

type MockInvoiceService struct {
	mock.Mock
}

var _ service.InvoiceService = (*MockInvoiceService)(nil)

func (m *MockInvoiceService) Generate(ctx context.Context, in service.GenerateInvoiceInput) (*model.Invoice, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListForUser(ctx context.Context, userID string, limit, offset int) (*service.ListResult[model.Invoice], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Invoice]), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, actor service.Actor, id string) (*model.Invoice, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Download(ctx context.Context, actor service.Actor, id string) (io.ReadCloser, *model.Invoice, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Invoice), args.Error(2)
}

func (m *MockInvoiceService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
