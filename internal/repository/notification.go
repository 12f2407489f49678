package repository

import (
	"context"

	"llouest/internal/model"
)

// NotificationRepository scopes every read and write to the owning user.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, pq PageQuery) (*PageResult[model.Notification], error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// MarkRead returns ErrNotFound when the notification does not belong to userID.
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}
