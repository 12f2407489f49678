package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"llouest/internal/repository"
)

const uniqueViolation = "23505"

// dialect builds statements for dynamic filters; from() switches them to $n placeholders.
var dialect = goqu.Dialect("postgres")

func from(table string) *goqu.SelectDataset {
	return dialect.From(table).Prepared(true)
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

// expectAffected returns ErrNotFound when a write touched no row.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// selectPage runs a count and a page query built from the same filtered dataset.
func selectPage[T any](ctx context.Context, db *sqlx.DB, ds *goqu.SelectDataset, columns []any, pq repository.PageQuery, order ...exp.OrderedExpression) (*repository.PageResult[T], error) {
	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, err
	}
	var total int
	if err := db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, err
	}

	pageSQL, pageArgs, err := ds.Select(columns...).
		Order(order...).
		Limit(uint(pq.Limit)).
		Offset(uint(pq.Offset)).
		ToSQL()
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := db.SelectContext(ctx, &items, pageSQL, pageArgs...); err != nil {
		return nil, err
	}
	return &repository.PageResult[T]{Items: items, Total: total}, nil
}

func cols(names ...string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
