package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"llouest/internal/apperror"
	"llouest/internal/config"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/realtime"
	"llouest/internal/repository"
)

var (
	fixedNow    = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	errInternal = apperror.Internal(nil)
)

// freezeTime pins now for the duration of the test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func testMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func testTemplates() *mailer.Templates {
	return mailer.NewTemplates(mailer.Brand{
		Name:         "L&L Ouest Services",
		PublicURL:    "https://llouest.example",
		ContactEmail: "contact@llouest.example",
	}, time.UTC)
}

func testChallengeConfig() config.ChallengeConfig {
	return config.ChallengeConfig{
		CodeTTL:      10 * time.Minute,
		MaxAttempts:  5,
		MaxResends:   3,
		ResendWindow: 10 * time.Minute,
	}
}

func assertAppError(t *testing.T, err error, status int, code string) *apperror.AppError {
	t.Helper()
	ae, ok := apperror.As(err)
	require.True(t, ok, "expected *AppError, got %v", err)
	assert.Equal(t, status, ae.Status)
	assert.Equal(t, code, ae.Code)
	return ae
}

func TestPageQuery(t *testing.T) {
	assert.Equal(t, repository.PageQuery{Limit: 10, Offset: 0}, pageQuery(0, -5))
	assert.Equal(t, repository.PageQuery{Limit: 100, Offset: 20}, pageQuery(500, 20))
	assert.Equal(t, repository.PageQuery{Limit: 25, Offset: 0}, pageQuery(25, 0))
}

func TestListResult_NeverNil(t *testing.T) {
	res := listResult(&repository.PageResult[int]{}, repository.PageQuery{Limit: 10})
	assert.NotNil(t, res.Items)
	assert.Equal(t, 10, res.Limit)
}

func TestActor(t *testing.T) {
	assert.True(t, Actor{}.Anonymous())
	assert.True(t, Actor{UserID: "u1", Role: model.RoleAdmin}.IsAdmin())
	assert.False(t, Actor{UserID: "u1", Role: model.RoleClient}.IsAdmin())
}

// fakeNotifier records notifications for services that depend on NotificationService.
type fakeNotifier struct {
	mock.Mock
}

func (m *fakeNotifier) Notify(ctx context.Context, userID string, in NotificationInput) (*model.Notification, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *fakeNotifier) NotifyAdmins(ctx context.Context, in NotificationInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *fakeNotifier) List(ctx context.Context, actor Actor, unreadOnly bool, limit, offset int) (*ListResult[model.Notification], error) {
	panic("not used")
}

func (m *fakeNotifier) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	panic("not used")
}

func (m *fakeNotifier) MarkRead(ctx context.Context, actor Actor, id string) error {
	panic("not used")
}

func (m *fakeNotifier) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	panic("not used")
}

func (m *fakeNotifier) Delete(ctx context.Context, actor Actor, id string) error {
	panic("not used")
}

func (m *fakeNotifier) Subscribe(ctx context.Context, actor Actor) (<-chan realtime.Event, error) {
	panic("not used")
}
