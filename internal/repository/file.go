package repository

import (
	"context"

	"llouest/internal/model"
)

// FileRepository defines data access for uploaded file metadata.
// Persistence only, no business rules.
type FileRepository interface {
	// Create inserts a new file record and returns the stored row.
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByID returns a file by its ID.
	FindByID(ctx context.Context, id string) (*model.File, error)

	// List returns a page of files for one owner, newest first. An empty
	// ownerID lists every file.
	List(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.File], error)

	// Delete removes a file by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
