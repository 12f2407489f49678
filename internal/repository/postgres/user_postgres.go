package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const userColumns = `id, email, password_hash, name, phone, address, role, preferences, location,
	email_verified, last_login_at, created_at, updated_at`

var userColumnList = cols("id", "email", "password_hash", "name", "phone", "address", "role",
	"preferences", "location", "email_verified", "last_login_at", "created_at", "updated_at")

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sqlx.DB
}

func NewUserPostgres(db *sqlx.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func (r *UserPostgres) Create(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (id, email, password_hash, name, phone, address, role, preferences, location,
			email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.Name, u.Phone, u.Address, u.Role,
		u.Preferences, u.Location, u.EmailVerified, u.CreatedAt, u.UpdatedAt,
	)
	return mapErr(err)
}

func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserPostgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, strings.ToLower(email))
	return exists, err
}

func (r *UserPostgres) Update(ctx context.Context, u *model.User) error {
	const q = `
		UPDATE users
		SET email = $2, name = $3, phone = $4, address = $5, role = $6, preferences = $7,
			location = $8, email_verified = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q,
		u.ID, strings.ToLower(u.Email), u.Name, u.Phone, u.Address, u.Role, u.Preferences,
		u.Location, u.EmailVerified, u.UpdatedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *UserPostgres) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}

func (r *UserPostgres) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return mapErr(err)
}

func (r *UserPostgres) List(ctx context.Context, f repository.UserFilter, pq repository.PageQuery) (*repository.PageResult[model.User], error) {
	ds := from("users")
	if f.Role != "" {
		ds = ds.Where(goqu.Ex{"role": f.Role})
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("email").ILike(like),
			goqu.C("name").ILike(like),
		))
	}
	res, err := selectPage[model.User](ctx, r.db, ds, userColumnList, pq,
		goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *UserPostgres) ListAdmins(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at`, model.RoleAdmin)
	return users, mapErr(err)
}

func (r *UserPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectAffected(res)
}
