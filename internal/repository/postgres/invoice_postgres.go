package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

const invoiceColumns = `id, number, user_id, reservation_id, lines, subtotal_cents, vat_rate_bp,
	vat_cents, total_cents, notes, issued_at, due_at, storage_path, created_at`

var invoiceColumnList = cols("id", "number", "user_id", "reservation_id", "lines", "subtotal_cents",
	"vat_rate_bp", "vat_cents", "total_cents", "notes", "issued_at", "due_at", "storage_path", "created_at")

type InvoicePostgres struct {
	db *sqlx.DB
}

func NewInvoicePostgres(db *sqlx.DB) *InvoicePostgres {
	return &InvoicePostgres{db: db}
}

var _ repository.InvoiceRepository = (*InvoicePostgres)(nil)

// NextSequence draws from invoice_number_seq. Gaps after a failed generation are accepted.
func (r *InvoicePostgres) NextSequence(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT nextval('invoice_number_seq')`)
	return n, mapErr(err)
}

func (r *InvoicePostgres) Create(ctx context.Context, inv *model.Invoice) error {
	const q = `
		INSERT INTO invoices (id, number, user_id, reservation_id, lines, subtotal_cents, vat_rate_bp,
			vat_cents, total_cents, notes, issued_at, due_at, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, q,
		inv.ID, inv.Number, inv.UserID, inv.ReservationID, inv.Lines, inv.SubtotalCents,
		inv.VATRateBP, inv.VATCents, inv.TotalCents, inv.Notes, inv.IssuedAt, inv.DueAt,
		inv.StoragePath, inv.CreatedAt,
	)
	return mapErr(err)
}

func (r *InvoicePostgres) FindByID(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	if err := r.db.GetContext(ctx, &inv, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id); err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

// ListByUser lists invoices for one user, or all invoices when userID is empty.
func (r *InvoicePostgres) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Invoice], error) {
	ds := from("invoices")
	if userID != "" {
		ds = ds.Where(goqu.Ex{"user_id": userID})
	}
	res, err := selectPage[model.Invoice](ctx, r.db, ds, invoiceColumnList, pq,
		goqu.C("issued_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

func (r *InvoicePostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return mapErr(err)
}
