package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/model"
	"llouest/internal/push"
	"llouest/internal/realtime"
	"llouest/internal/repository"
)

var ErrNotificationNotFound = apperror.NotFound("NOTIFICATION_NOT_FOUND", "notification not found")

// EventNotification is the realtime event type carrying a model.Notification.
const EventNotification = "notification"

// NotificationInput is what a use case wants to tell a user.
type NotificationInput struct {
	Type  model.NotificationType
	Title string
	Body  string
	Data  map[string]string
}

// NotificationService stores in-app notifications and forwards them over the
// realtime bus and push. Only the database write can fail a call; realtime
// and push problems are logged and counted.
type NotificationService interface {
	Notify(ctx context.Context, userID string, in NotificationInput) (*model.Notification, error)

	// NotifyAdmins notifies every administrator on their own channel.
	NotifyAdmins(ctx context.Context, in NotificationInput) error

	List(ctx context.Context, actor Actor, unreadOnly bool, limit, offset int) (*ListResult[model.Notification], error)
	UnreadCount(ctx context.Context, actor Actor) (int, error)
	MarkRead(ctx context.Context, actor Actor, id string) error
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
	Delete(ctx context.Context, actor Actor, id string) error

	// Subscribe streams the caller's realtime events until ctx ends.
	Subscribe(ctx context.Context, actor Actor) (<-chan realtime.Event, error)
}

type notificationService struct {
	repo    repository.NotificationRepository
	users   repository.UserRepository
	bus     realtime.Bus
	pusher  push.Pusher
	metrics *Metrics
}

// NewNotificationService constructs a new NotificationService.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, bus realtime.Bus, pusher push.Pusher, metrics *Metrics) NotificationService {
	return &notificationService{repo: repo, users: users, bus: bus, pusher: pusher, metrics: metrics}
}

func (s *notificationService) Notify(ctx context.Context, userID string, in NotificationInput) (*model.Notification, error) {
	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      in.Type,
		Title:     in.Title,
		Body:      in.Body,
		Data:      in.Data,
		CreatedAt: now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperror.Internal(err)
	}

	s.publish(ctx, realtime.UserChannel(userID), n)
	s.push(ctx, n)
	return n, nil
}

func (s *notificationService) NotifyAdmins(ctx context.Context, in NotificationInput) error {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		return apperror.Internal(err)
	}

	var errs []error
	for i := range admins {
		if _, err := s.Notify(ctx, admins[i].ID, in); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, limit, offset int) (*ListResult[model.Notification], error) {
	pq := pageQuery(limit, offset)
	res, err := s.repo.List(ctx, actor.UserID, unreadOnly, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	n, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.MarkRead(ctx, actor.UserID, id); err != nil {
		return notFoundOr(err, ErrNotificationNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, actor Actor, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Delete(ctx, actor.UserID, id); err != nil {
		return notFoundOr(err, ErrNotificationNotFound)
	}
	return nil
}

func (s *notificationService) Subscribe(ctx context.Context, actor Actor) (<-chan realtime.Event, error) {
	sub, err := s.bus.Subscribe(ctx, realtime.UserChannel(actor.UserID))
	if err != nil {
		return nil, apperror.Unavailable("REALTIME_UNAVAILABLE", "realtime stream unavailable").Wrap(err)
	}
	return sub, nil
}

func (s *notificationService) publish(ctx context.Context, channel string, n *model.Notification) {
	e, err := realtime.NewEvent(EventNotification, n)
	if err == nil {
		err = s.bus.Publish(ctx, channel, e)
	}
	if err != nil {
		s.metrics.notificationsSent.WithLabelValues("realtime", "failed").Inc()
		logger.FromContext(ctx).Warn().Err(err).Str("channel", channel).Msg("realtime publish failed")
		return
	}
	s.metrics.notificationsSent.WithLabelValues("realtime", "sent").Inc()
}

func (s *notificationService) push(ctx context.Context, n *model.Notification) {
	log := logger.FromContext(ctx)
	u, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		s.metrics.notificationsSent.WithLabelValues("push", "failed").Inc()
		log.Warn().Err(err).Str("user_id", n.UserID).Msg("push skipped, user lookup failed")
		return
	}
	if !u.Preferences.Notifications || u.Preferences.FCMToken == "" {
		s.metrics.notificationsSent.WithLabelValues("push", "skipped").Inc()
		return
	}

	data := map[string]string{"notification_id": n.ID, "type": string(n.Type)}
	for k, v := range n.Data {
		data[k] = v
	}
	err = s.pusher.Send(ctx, u.Preferences.FCMToken, n.Title, n.Body, data)
	switch {
	case err == nil:
		s.metrics.notificationsSent.WithLabelValues("push", "sent").Inc()
	case errors.Is(err, push.ErrInvalidToken):
		s.metrics.notificationsSent.WithLabelValues("push", "invalid_token").Inc()
		u.Preferences.FCMToken = ""
		u.UpdatedAt = now()
		if err := s.users.Update(ctx, u); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("stale push token not cleared")
		}
	default:
		s.metrics.notificationsSent.WithLabelValues("push", "failed").Inc()
		log.Warn().Err(err).Str("user_id", u.ID).Msg("push failed")
	}
}
