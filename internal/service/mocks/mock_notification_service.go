package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/realtime"
	"llouest/internal/service"
)

type MockNotificationService struct {
	mock.Mock
}

var _ service.NotificationService = (*MockNotificationService)(nil)

func (m *MockNotificationService) Notify(ctx context.Context, userID string, in service.NotificationInput) (*model.Notification, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) NotifyAdmins(ctx context.Context, in service.NotificationInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockNotificationService) List(ctx context.Context, actor service.Actor, unreadOnly bool, limit, offset int) (*service.ListResult[model.Notification], error) {
	args := m.Called(ctx, actor, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Notification]), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, actor service.Actor) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, actor service.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, actor service.Actor) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, actor service.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockNotificationService) Subscribe(ctx context.Context, actor service.Actor) (<-chan realtime.Event, error) {
	args := m.Called(ctx, actor)
	switch ch := args.Get(0).(type) {
	case chan realtime.Event:
		return ch, args.Error(1)
	case <-chan realtime.Event:
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}
