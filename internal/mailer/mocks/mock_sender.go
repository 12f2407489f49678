package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/mailer"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, e mailer.Email) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
