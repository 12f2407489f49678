package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/storage"
)

var ErrFileNotFound = apperror.NotFound("FILE_NOT_FOUND", "file not found")

// FileWithURL is a file record with a temporary download link.
type FileWithURL struct {
	model.File
	URL          string    `json:"url"`
	URLExpiresAt time.Time `json:"url_expires_at"`
}

// FileService defines the use cases for user uploaded files.
type FileService interface {
	// Upload stores the content under files/, saves metadata to DB, and rolls back storage if DB save fails.
	// - the original filename is kept as metadata; the key is UUID + original extension.
	Upload(ctx context.Context, actor Actor, u Upload) (*model.File, error)

	// List returns the caller's files, or every file for an admin, with a total count.
	List(ctx context.Context, actor Actor, limit, offset int) (*ListResult[model.File], error)

	// Get returns a file with a presigned download URL.
	Get(ctx context.Context, actor Actor, id string) (*FileWithURL, error)

	// Download streams the file content. The caller closes the reader.
	Download(ctx context.Context, actor Actor, id string) (io.ReadCloser, *model.File, error)

	// Delete removes a file from both storage and repository.
	Delete(ctx context.Context, actor Actor, id string) error
}

// fileService is a concrete implementation of FileService.
type fileService struct {
	store      storage.Storage
	repo       repository.FileRepository
	presignTTL time.Duration
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, repo repository.FileRepository, presignTTL time.Duration) FileService {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &fileService{store: store, repo: repo, presignTTL: presignTTL}
}

func (s *fileService) Upload(ctx context.Context, actor Actor, u Upload) (*model.File, error) {
	if u.Reader == nil {
		return nil, ErrReaderNil
	}
	key := storage.NewKey(storage.PrefixFiles, u.Filename)
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objInfo, err := s.store.Put(ctx, key, u.Reader, storage.PutObjectOptions{
		Size:        u.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": u.Filename,
			"owner-id":          actor.UserID,
		},
	})
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("upload to storage: %w", err))
	}

	f := &model.File{
		ID:          uuid.NewString(),
		OwnerID:     actor.UserID,
		Filename:    displayName(u.Filename, key),
		StoragePath: key,
		Size:        objInfo.Size,
		ContentType: contentType,
		CreatedAt:   now(),
	}
	stored, err := s.repo.Create(ctx, f)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, apperror.Internal(fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr))
		}
		return nil, apperror.Internal(fmt.Errorf("db save failed: %w", err))
	}
	return stored, nil
}

func (s *fileService) List(ctx context.Context, actor Actor, limit, offset int) (*ListResult[model.File], error) {
	owner := actor.UserID
	if actor.IsAdmin() {
		owner = ""
	}
	pq := pageQuery(limit, offset)
	res, err := s.repo.List(ctx, owner, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *fileService) Get(ctx context.Context, actor Actor, id string) (*FileWithURL, error) {
	f, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, f.StoragePath, s.presignTTL)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("presign: %w", err))
	}
	return &FileWithURL{File: *f, URL: url, URLExpiresAt: now().Add(s.presignTTL)}, nil
}

func (s *fileService) Download(ctx context.Context, actor Actor, id string) (io.ReadCloser, *model.File, error) {
	f, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, objectErr(ctx, err, ErrFileNotFound)
	}
	return rc, f, nil
}

// Delete removes the object first; if that fails the row is kept so the key is not lost.
func (s *fileService) Delete(ctx context.Context, actor Actor, id string) error {
	f, err := s.find(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.StoragePath); err != nil {
		return apperror.Internal(fmt.Errorf("delete storage: %w", err))
	}
	// Repository ignores missing rows.
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *fileService) find(ctx context.Context, actor Actor, id string) (*model.File, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrFileNotFound)
	}
	if f.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return f, nil
}

// displayName keeps the client's base name for display, falling back to the key.
func displayName(filename, key string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return path.Base(key)
	}
	return name
}

// objectErr maps a missing object to notFound and logs anything else.
func objectErr(ctx context.Context, err error, notFound *apperror.AppError) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		logger.FromContext(ctx).Error().Err(err).Msg("metadata points to a missing object")
		return notFound
	}
	return apperror.Internal(err)
}
