package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/sanitize"
	"llouest/internal/storage"
)

const maxCommentLength = 2000

var (
	ErrReviewNotFound  = apperror.NotFound("REVIEW_NOT_FOUND", "review not found")
	ErrAlreadyReviewed = apperror.Conflict("ALREADY_REVIEWED", "you already reviewed this service")
	ErrInvalidRating   = apperror.BadRequest("INVALID_RATING", "rating must be between 1 and 5")
	ErrCommentTooLong  = apperror.BadRequest("COMMENT_TOO_LONG", "comment must be at most 2000 characters")
	ErrTooManyImages   = apperror.BadRequest("TOO_MANY_IMAGES", "at most 5 images per review")
	ErrInvalidImage    = apperror.BadRequest("INVALID_IMAGE", "images must be JPEG, PNG, WebP or GIF up to 5 MB")
)

type CreateReviewInput struct {
	ServiceID string `json:"service_id" form:"service_id" validate:"required,max=100"`
	Rating    int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" form:"comment" validate:"omitempty,max=2000"`
}

type UpdateReviewInput struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ServiceReviews is a page of reviews of one service with its rating summary.
type ServiceReviews struct {
	ListResult[model.Review]
	Summary model.RatingSummary `json:"summary"`
}

// ReviewService handles client reviews. Images are stored under the
// reviews/ prefix and removed together with their review.
type ReviewService interface {
	// Create uploads images first, then saves the review, and deletes the
	// uploaded images if the save fails.
	Create(ctx context.Context, actor Actor, in CreateReviewInput, images []Upload) (*model.Review, error)
	ListByService(ctx context.Context, serviceID string, limit, offset int) (*ServiceReviews, error)
	ListMine(ctx context.Context, actor Actor, limit, offset int) (*ListResult[model.Review], error)
	Get(ctx context.Context, id string) (*model.Review, error)
	Update(ctx context.Context, actor Actor, id string, in UpdateReviewInput) (*model.Review, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type reviewService struct {
	repo   repository.ReviewRepository
	store  storage.Storage
	notify NotificationService
}

// NewReviewService constructs a new ReviewService.
func NewReviewService(repo repository.ReviewRepository, store storage.Storage, notify NotificationService) ReviewService {
	return &reviewService{repo: repo, store: store, notify: notify}
}

func (s *reviewService) Create(ctx context.Context, actor Actor, in CreateReviewInput, images []Upload) (*model.Review, error) {
	comment, err := checkReview(in.Rating, in.Comment)
	if err != nil {
		return nil, err
	}
	if len(images) > maxReviewImages {
		return nil, ErrTooManyImages
	}
	for _, img := range images {
		if img.Reader == nil {
			return nil, ErrReaderNil
		}
		if !isImage(img.ContentType) || img.Size > maxReviewImageSize {
			return nil, ErrInvalidImage.WithDetail("filename", img.Filename)
		}
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		key := storage.NewKey(storage.PrefixReviews, img.Filename)
		if _, err := s.store.Put(ctx, key, img.Reader, storage.PutObjectOptions{
			Size:        img.Size,
			ContentType: img.ContentType,
			Metadata:    map[string]string{"original-filename": img.Filename},
		}); err != nil {
			s.rollback(ctx, keys)
			return nil, apperror.Internal(fmt.Errorf("upload to storage: %w", err))
		}
		keys = append(keys, key)
	}

	t := now()
	r := &model.Review{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		ServiceID: in.ServiceID,
		Rating:    in.Rating,
		Comment:   comment,
		Images:    keys,
		CreatedAt: t,
		UpdatedAt: t,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.rollback(ctx, keys)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, apperror.Internal(fmt.Errorf("db save failed: %w", err))
	}

	if err := s.notify.NotifyAdmins(ctx, NotificationInput{
		Type:  model.NotificationReview,
		Title: "Nouvel avis",
		Body:  strconv.Itoa(r.Rating) + "/5 pour " + r.ServiceID,
		Data:  map[string]string{"review_id": r.ID, "service_id": r.ServiceID},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("review_id", r.ID).Msg("admins not notified")
	}
	return r, nil
}

func (s *reviewService) ListByService(ctx context.Context, serviceID string, limit, offset int) (*ServiceReviews, error) {
	if serviceID == "" {
		return nil, ErrIDRequired
	}
	pq := pageQuery(limit, offset)
	res, err := s.repo.List(ctx, repository.ReviewFilter{ServiceID: serviceID}, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	sum, err := s.repo.Summary(ctx, serviceID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &ServiceReviews{ListResult: *listResult(res, pq), Summary: *sum}, nil
}

func (s *reviewService) ListMine(ctx context.Context, actor Actor, limit, offset int) (*ListResult[model.Review], error) {
	pq := pageQuery(limit, offset)
	res, err := s.repo.List(ctx, repository.ReviewFilter{UserID: actor.UserID}, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *reviewService) Get(ctx context.Context, id string) (*model.Review, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrReviewNotFound)
	}
	return r, nil
}

func (s *reviewService) Update(ctx context.Context, actor Actor, id string, in UpdateReviewInput) (*model.Review, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID {
		return nil, ErrForbidden
	}

	rating, comment := r.Rating, r.Comment
	if in.Rating != nil {
		rating = *in.Rating
	}
	if in.Comment != nil {
		comment = *in.Comment
	}
	if r.Comment, err = checkReview(rating, comment); err != nil {
		return nil, err
	}
	r.Rating = rating
	r.UpdatedAt = now()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, notFoundOr(err, ErrReviewNotFound)
	}
	return r, nil
}

// Delete removes the images first; the row stays if that fails so no key is lost.
func (s *reviewService) Delete(ctx context.Context, actor Actor, id string) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.UserID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	for _, key := range r.Images {
		if err := s.store.Delete(ctx, key); err != nil {
			return apperror.Internal(fmt.Errorf("delete storage: %w", err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, ErrReviewNotFound)
	}
	return nil
}

func (s *reviewService) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			logger.FromContext(ctx).Error().Err(err).Str("key", key).Msg("rollback delete failed")
		}
	}
}

// checkReview validates the rating and returns the sanitized comment.
func checkReview(rating int, comment string) (string, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return "", ErrInvalidRating
	}
	comment = sanitize.Text(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return "", ErrCommentTooLong
	}
	return comment, nil
}
