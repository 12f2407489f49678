package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
)

type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Find(ctx context.Context, purpose model.ChallengePurpose, email string) (*model.Challenge, error) {
	args := m.Called(ctx, purpose, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) Upsert(ctx context.Context, c *model.Challenge) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChallengeRepository) IncrementAttempts(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChallengeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChallengeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
