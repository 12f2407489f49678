package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"llouest/internal/model"
	"llouest/internal/repository"
)

var fileRowColumns = []string{"id", "owner_id", "filename", "storage_path", "size", "content_type", "created_at"}

func TestFilePostgres_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFilePostgres(db)

	now := time.Now().UTC()
	f := &model.File{
		ID:          "test-uuid",
		OwnerID:     "u-1",
		Filename:    "test.txt",
		StoragePath: "files/test-uuid.txt",
		Size:        123,
		ContentType: "text/plain",
		CreatedAt:   now,
	}

	rows := sqlmock.NewRows(fileRowColumns).
		AddRow(f.ID, f.OwnerID, f.Filename, f.StoragePath, f.Size, f.ContentType, f.CreatedAt)

	mock.ExpectQuery("INSERT INTO files").
		WithArgs(f.ID, f.OwnerID, f.Filename, f.StoragePath, f.Size, f.ContentType, f.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(context.Background(), f)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, f.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFilePostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(fileRowColumns).
			AddRow("test-id", "u-1", "file.txt", "files/test-id.txt", 100, "text/plain", time.Now())

		mock.ExpectQuery(`SELECT (.+) FROM files WHERE id = \$1`).
			WithArgs("test-id").
			WillReturnRows(rows)

		f, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.Equal(t, "u-1", f.OwnerID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM files WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(fileRowColumns))

		f, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, f)
	})
}

func TestFilePostgres_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFilePostgres(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "files" WHERE \("owner_id" = \$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+) FROM "files" WHERE (.+) ORDER BY`).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow("test-id", "u-1", "file.txt", "files/test-id.txt", 100, "text/plain", time.Now()))

	res, err := repo.List(context.Background(), "u-1", repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFilePostgres(db)

	mock.ExpectExec(`DELETE FROM files WHERE id = \$1`).
		WithArgs("test-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "test-id"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
