package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const reservationColumns = `id, user_id, service_id, service_name, category, first_name, last_name,
	email, phone, date, frequency, address, options, message, consentement, status, reply,
	replied_at, created_at, updated_at`

var reservationColumnList = cols("id", "user_id", "service_id", "service_name", "category",
	"first_name", "last_name", "email", "phone", "date", "frequency", "address", "options",
	"message", "consentement", "status", "reply", "replied_at", "created_at", "updated_at")

type ReservationPostgres struct {
	db *sqlx.DB
}

func NewReservationPostgres(db *sqlx.DB) *ReservationPostgres {
	return &ReservationPostgres{db: db}
}

var _ repository.ReservationRepository = (*ReservationPostgres)(nil)

func (r *ReservationPostgres) Create(ctx context.Context, res *model.Reservation) error {
	const q = `
		INSERT INTO reservations (id, user_id, service_id, service_name, category, first_name,
			last_name, email, phone, date, frequency, address, options, message, consentement,
			status, reply, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.UserID, res.ServiceID, res.ServiceName, res.Category, res.FirstName,
		res.LastName, res.Email, res.Phone, res.Date, res.Frequency, res.Address, res.Options,
		res.Message, res.Consentement, res.Status, res.Reply, res.CreatedAt, res.UpdatedAt,
	)
	return mapErr(err)
}

func (r *ReservationPostgres) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &res, nil
}

func (r *ReservationPostgres) List(ctx context.Context, f repository.ReservationFilter, pq repository.PageQuery) (*repository.PageResult[model.Reservation], error) {
	ds := from("reservations")
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": f.Status})
	} else {
		ds = ds.Where(goqu.C("status").Neq(model.ReservationDeleted))
	}
	if f.UserID != "" {
		ds = ds.Where(goqu.Ex{"user_id": f.UserID})
	}
	if f.ServiceID != "" {
		ds = ds.Where(goqu.Ex{"service_id": f.ServiceID})
	}
	res, err := selectPage[model.Reservation](ctx, r.db, ds, reservationColumnList, pq,
		goqu.C("date").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *ReservationPostgres) UpdateStatus(ctx context.Context, res *model.Reservation) error {
	const q = `
		UPDATE reservations
		SET status = $2, reply = $3, replied_at = $4, updated_at = $5
		WHERE id = $1
	`
	out, err := r.db.ExecContext(ctx, q, res.ID, res.Status, res.Reply, res.RepliedAt, res.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(out)
}
