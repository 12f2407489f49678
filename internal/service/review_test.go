package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"llouest/internal/model"
	"llouest/internal/repository"
	repoMocks "llouest/internal/repository/mocks"
	"llouest/internal/storage"
	storeMocks "llouest/internal/storage/mocks"
)

type reviewFixture struct {
	repo   *repoMocks.MockReviewRepository
	store  *storeMocks.MockStorage
	notify *fakeNotifier
	svc    ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		repo:   new(repoMocks.MockReviewRepository),
		store:  new(storeMocks.MockStorage),
		notify: new(fakeNotifier),
	}
	f.svc = NewReviewService(f.repo, f.store, f.notify)
	return f
}

func photo(name string) Upload {
	return Upload{Reader: strings.NewReader("img"), Filename: name, ContentType: "image/jpeg", Size: 3}
}

func isReviewKey(key string) bool {
	return strings.HasPrefix(key, "reviews/") && strings.HasSuffix(key, ".jpg")
}

func TestReviewService_Create(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)
	actor := Actor{UserID: "u1", Role: model.RoleClient}
	in := CreateReviewInput{ServiceID: "menage", Rating: 5, Comment: "<b>Parfait</b>, merci !"}

	tests := []struct {
		name       string
		in         CreateReviewInput
		images     []Upload
		setupMocks func(f *reviewFixture)
		wantErr    error
		wantErrMsg string
	}{
		{
			name:   "happy path with images",
			in:     in,
			images: []Upload{photo("a.JPG"), photo("b.jpg")},
			setupMocks: func(f *reviewFixture) {
				f.store.On("Put", ctx, mock.MatchedBy(isReviewKey), mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
					return o.ContentType == "image/jpeg"
				})).Return(storage.ObjectInfo{}, nil).Twice()
				f.repo.On("Create", ctx, mock.MatchedBy(func(r *model.Review) bool {
					return r.UserID == "u1" && r.Comment == "Parfait, merci !" && len(r.Images) == 2 && isReviewKey(r.Images[0])
				})).Return(nil)
				f.notify.On("NotifyAdmins", ctx, mock.MatchedBy(func(n NotificationInput) bool {
					return n.Type == model.NotificationReview
				})).Return(nil)
			},
		},
		{
			name:   "duplicate review rolls back images",
			in:     in,
			images: []Upload{photo("a.jpg")},
			setupMocks: func(f *reviewFixture) {
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				f.repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)
				f.store.On("Delete", ctx, mock.MatchedBy(isReviewKey)).Return(nil).Once()
			},
			wantErr: ErrAlreadyReviewed,
		},
		{
			name:   "second upload fails and first is removed",
			in:     in,
			images: []Upload{photo("a.jpg"), photo("b.jpg")},
			setupMocks: func(f *reviewFixture) {
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("minio down")).Once()
				f.store.On("Delete", ctx, mock.Anything).Return(nil).Once()
			},
			wantErrMsg: "upload to storage: minio down",
		},
		{
			name:       "rating out of range",
			in:         CreateReviewInput{ServiceID: "menage", Rating: 6},
			setupMocks: func(f *reviewFixture) {},
			wantErr:    ErrInvalidRating,
		},
		{
			name:       "comment too long",
			in:         CreateReviewInput{ServiceID: "menage", Rating: 4, Comment: strings.Repeat("é", 2001)},
			setupMocks: func(f *reviewFixture) {},
			wantErr:    ErrCommentTooLong,
		},
		{
			name:       "too many images",
			in:         in,
			images:     []Upload{photo("1.jpg"), photo("2.jpg"), photo("3.jpg"), photo("4.jpg"), photo("5.jpg"), photo("6.jpg")},
			setupMocks: func(f *reviewFixture) {},
			wantErr:    ErrTooManyImages,
		},
		{
			name:       "not an image",
			in:         in,
			images:     []Upload{{Reader: strings.NewReader("x"), Filename: "run.sh", ContentType: "text/x-shellscript", Size: 1}},
			setupMocks: func(f *reviewFixture) {},
			wantErr:    ErrInvalidImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture()
			tt.setupMocks(f)

			r, err := f.svc.Create(ctx, actor, tt.in, tt.images)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, r)
			}
			f.store.AssertExpectations(t)
			f.repo.AssertExpectations(t)
			f.notify.AssertExpectations(t)
		})
	}
}

func TestReviewService_ListByService(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()
	f.repo.On("List", ctx, repository.ReviewFilter{ServiceID: "menage"}, repository.PageQuery{Limit: 10}).
		Return(&repository.PageResult[model.Review]{Items: []model.Review{{ID: "rv1", Rating: 4}}, Total: 1}, nil)
	f.repo.On("Summary", ctx, "menage").Return(&model.RatingSummary{ServiceID: "menage", Count: 1, Average: 4}, nil)

	res, err := f.svc.ListByService(ctx, "menage", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 4.0, res.Summary.Average)
}

func TestReviewService_Update(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)
	rating := 2

	t.Run("owner edits", func(t *testing.T) {
		f := newReviewFixture()
		f.repo.On("FindByID", ctx, "rv1").Return(&model.Review{ID: "rv1", UserID: "u1", Rating: 5, Comment: "Top"}, nil)
		f.repo.On("Update", ctx, mock.MatchedBy(func(r *model.Review) bool {
			return r.Rating == 2 && r.Comment == "Top"
		})).Return(nil)

		r, err := f.svc.Update(ctx, Actor{UserID: "u1"}, "rv1", UpdateReviewInput{Rating: &rating})
		require.NoError(t, err)
		assert.Equal(t, fixedNow, r.UpdatedAt)
	})

	t.Run("admin cannot rewrite a client's review", func(t *testing.T) {
		f := newReviewFixture()
		f.repo.On("FindByID", ctx, "rv1").Return(&model.Review{ID: "rv1", UserID: "u1", Rating: 5}, nil)

		_, err := f.svc.Update(ctx, Actor{UserID: "a1", Role: model.RoleAdmin}, "rv1", UpdateReviewInput{Rating: &rating})
		assertAppError(t, err, http.StatusForbidden, "FORBIDDEN")
	})
}

func TestReviewService_Delete(t *testing.T) {
	ctx := context.Background()
	review := &model.Review{ID: "rv1", UserID: "u1", Images: model.StringList{"reviews/a.jpg", "reviews/b.jpg"}}

	t.Run("admin removes images then row", func(t *testing.T) {
		f := newReviewFixture()
		f.repo.On("FindByID", ctx, "rv1").Return(review, nil)
		f.store.On("Delete", ctx, "reviews/a.jpg").Return(nil)
		f.store.On("Delete", ctx, "reviews/b.jpg").Return(nil)
		f.repo.On("Delete", ctx, "rv1").Return(nil)

		assert.NoError(t, f.svc.Delete(ctx, Actor{UserID: "a1", Role: model.RoleAdmin}, "rv1"))
		f.store.AssertExpectations(t)
		f.repo.AssertExpectations(t)
	})

	t.Run("storage failure keeps the row", func(t *testing.T) {
		f := newReviewFixture()
		f.repo.On("FindByID", ctx, "rv1").Return(review, nil)
		f.store.On("Delete", ctx, "reviews/a.jpg").Return(errors.New("minio down"))

		err := f.svc.Delete(ctx, Actor{UserID: "u1"}, "rv1")
		assert.Error(t, err)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newReviewFixture()
		f.repo.On("FindByID", ctx, "rv1").Return(review, nil)

		assert.ErrorIs(t, f.svc.Delete(ctx, Actor{UserID: "u2"}, "rv1"), ErrForbidden)
	})
}
