package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

var notificationColumnList = cols("id", "user_id", "type", "title", "body", "data", "read", "created_at")

// NotificationPostgres scopes every statement by user_id so one user can never
// read or mutate another user's notifications.
type NotificationPostgres struct {
	db *sqlx.DB
}

func NewNotificationPostgres(db *sqlx.DB) *NotificationPostgres {
	return &NotificationPostgres{db: db}
}

var _ repository.NotificationRepository = (*NotificationPostgres)(nil)

func (r *NotificationPostgres) Create(ctx context.Context, n *model.Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, type, title, body, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.UserID, n.Type, n.Title, n.Body, n.Data, n.Read, n.CreatedAt)
	return mapErr(err)
}

func (r *NotificationPostgres) List(ctx context.Context, userID string, unreadOnly bool, pq repository.PageQuery) (*repository.PageResult[model.Notification], error) {
	ds := from("notifications").Where(goqu.Ex{"user_id": userID})
	if unreadOnly {
		ds = ds.Where(goqu.Ex{"read": false})
	}
	res, err := selectPage[model.Notification](ctx, r.db, ds, notificationColumnList, pq,
		goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *NotificationPostgres) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`, userID)
	return n, mapErr(err)
}

func (r *NotificationPostgres) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *NotificationPostgres) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *NotificationPostgres) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}
