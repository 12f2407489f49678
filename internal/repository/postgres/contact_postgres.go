package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const contactColumns = `id, name, email, phone, subject, message, status, reply, replied_at, created_at`

var contactColumnList = cols("id", "name", "email", "phone", "subject", "message", "status",
	"reply", "replied_at", "created_at")

type ContactPostgres struct {
	db *sqlx.DB
}

func NewContactPostgres(db *sqlx.DB) *ContactPostgres {
	return &ContactPostgres{db: db}
}

var _ repository.ContactRepository = (*ContactPostgres)(nil)

func (r *ContactPostgres) Create(ctx context.Context, m *model.ContactMessage) error {
	const q = `
		INSERT INTO contact_messages (id, name, email, phone, subject, message, status, reply, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.Name, m.Email, m.Phone, m.Subject, m.Message, m.Status, m.Reply, m.CreatedAt)
	return mapErr(err)
}

func (r *ContactPostgres) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	var m model.ContactMessage
	err := r.db.GetContext(ctx, &m, `SELECT `+contactColumns+` FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *ContactPostgres) List(ctx context.Context, status model.ContactStatus, pq repository.PageQuery) (*repository.PageResult[model.ContactMessage], error) {
	ds := from("contact_messages")
	if status != "" {
		ds = ds.Where(goqu.Ex{"status": status})
	}
	res, err := selectPage[model.ContactMessage](ctx, r.db, ds, contactColumnList, pq,
		goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *ContactPostgres) Update(ctx context.Context, m *model.ContactMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = $2, reply = $3, replied_at = $4 WHERE id = $1`,
		m.ID, m.Status, m.Reply, m.RepliedAt)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *ContactPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}
