package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const reviewColumns = `id, user_id, service_id, rating, comment, images, created_at, updated_at`

var reviewColumnList = cols("id", "user_id", "service_id", "rating", "comment", "images",
	"created_at", "updated_at")

type ReviewPostgres struct {
	db *sqlx.DB
}

func NewReviewPostgres(db *sqlx.DB) *ReviewPostgres {
	return &ReviewPostgres{db: db}
}

var _ repository.ReviewRepository = (*ReviewPostgres)(nil)

func (r *ReviewPostgres) Create(ctx context.Context, rv *model.Review) error {
	const q = `
		INSERT INTO reviews (id, user_id, service_id, rating, comment, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		rv.ID, rv.UserID, rv.ServiceID, rv.Rating, rv.Comment, rv.Images, rv.CreatedAt, rv.UpdatedAt)
	return mapErr(err)
}

func (r *ReviewPostgres) FindByID(ctx context.Context, id string) (*model.Review, error) {
	var rv model.Review
	if err := r.db.GetContext(ctx, &rv, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id); err != nil {
		return nil, mapErr(err)
	}
	return &rv, nil
}

func (r *ReviewPostgres) List(ctx context.Context, f repository.ReviewFilter, pq repository.PageQuery) (*repository.PageResult[model.Review], error) {
	ds := from("reviews")
	if f.ServiceID != "" {
		ds = ds.Where(goqu.Ex{"service_id": f.ServiceID})
	}
	if f.UserID != "" {
		ds = ds.Where(goqu.Ex{"user_id": f.UserID})
	}
	res, err := selectPage[model.Review](ctx, r.db, ds, reviewColumnList, pq,
		goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *ReviewPostgres) Summary(ctx context.Context, serviceID string) (*model.RatingSummary, error) {
	const q = `
		SELECT $1::text AS service_id, COUNT(*) AS count, COALESCE(AVG(rating), 0)::float8 AS average
		FROM reviews
		WHERE service_id = $1
	`
	var s model.RatingSummary
	if err := r.db.GetContext(ctx, &s, q, serviceID); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *ReviewPostgres) Update(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET rating = $2, comment = $3, images = $4, updated_at = $5 WHERE id = $1`,
		rv.ID, rv.Rating, rv.Comment, rv.Images, rv.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *ReviewPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	return mapErr(err)
}
