package repository

import (
	"context"

	"llouest/internal/model"
)

type ContactRepository interface {
	Create(ctx context.Context, m *model.ContactMessage) error
	FindByID(ctx context.Context, id string) (*model.ContactMessage, error)
	List(ctx context.Context, status model.ContactStatus, pq PageQuery) (*PageResult[model.ContactMessage], error)
	// Update writes status, reply and replied_at.
	Update(ctx context.Context, m *model.ContactMessage) error
	Delete(ctx context.Context, id string) error
}
