package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"llouest/internal/model"
	"llouest/internal/repository"
)

var fileColumnList = cols("id", "owner_id", "filename", "storage_path", "size", "content_type", "created_at")

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
type FilePostgres struct {
	db *sqlx.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sqlx.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Create inserts a new file row and returns the stored record.
func (r *FilePostgres) Create(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		INSERT INTO files (id, owner_id, filename, storage_path, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, filename, storage_path, size, content_type, created_at
	`
	var out model.File
	if err := r.db.GetContext(ctx, &out, q,
		f.ID,
		f.OwnerID,
		f.Filename,
		f.StoragePath,
		f.Size,
		f.ContentType,
		f.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

// FindByID fetches a single file by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.File, error) {
	const q = `
		SELECT id, owner_id, filename, storage_path, size, content_type, created_at
		FROM files
		WHERE id = $1
	`
	var f model.File
	if err := r.db.GetContext(ctx, &f, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &f, nil
}

// List returns files using LIMIT/OFFSET pagination and a total count.
func (r *FilePostgres) List(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.File], error) {
	ds := from("files")
	if ownerID != "" {
		ds = ds.Where(goqu.Ex{"owner_id": ownerID})
	}
	res, err := selectPage[model.File](ctx, r.db, ds, fileColumnList, pq,
		goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return res, mapErr(err)
}

// Delete removes a file by ID. It does not return an error if the row does not exist.
func (r *FilePostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	return mapErr(err)
}
