package repository

import (
	"context"

	"llouest/internal/model"
)

type InvoiceRepository interface {
	// NextSequence returns the next invoice sequence value.
	NextSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id string) (*model.Invoice, error)
	ListByUser(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Invoice], error)
	Delete(ctx context.Context, id string) error
}
