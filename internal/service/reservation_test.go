package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"llouest/internal/mailer"
	mailMocks "llouest/internal/mailer/mocks"
	"llouest/internal/model"
	"llouest/internal/repository"
	repoMocks "llouest/internal/repository/mocks"
)

type reservationFixture struct {
	repo   *repoMocks.MockReservationRepository
	notify *fakeNotifier
	mail   *mailMocks.MockSender
	svc    ReservationService
}

func newReservationFixture() *reservationFixture {
	f := &reservationFixture{
		repo:   new(repoMocks.MockReservationRepository),
		notify: new(fakeNotifier),
		mail:   new(mailMocks.MockSender),
	}
	f.svc = NewReservationService(f.repo, f.notify, f.mail, testTemplates())
	return f
}

func validReservationInput() CreateReservationInput {
	return CreateReservationInput{
		ServiceID:    "menage",
		ServiceName:  "Ménage à domicile",
		FirstName:    "Jeanne",
		LastName:     "Martin",
		Email:        "Jeanne@Example.com",
		Phone:        "0612345678",
		Date:         fixedNow.Add(72 * time.Hour),
		Address:      "3 rue des Lilas, Nantes",
		Options:      []string{"vitres", "<i></i>"},
		Message:      "Merci <script>alert(1)</script>",
		Consentement: true,
	}
}

func ownedReservation(status model.ReservationStatus, owner string) *model.Reservation {
	r := &model.Reservation{
		ID:          "r1",
		ServiceName: "Ménage à domicile",
		FirstName:   "Jeanne",
		Email:       "jeanne@example.com",
		Date:        fixedNow.Add(72 * time.Hour),
		Status:      status,
	}
	if owner != "" {
		r.UserID = &owner
	}
	return r
}

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	tests := []struct {
		name       string
		actor      Actor
		mutate     func(in *CreateReservationInput)
		setupMocks func(f *reservationFixture)
		wantErr    error
		check      func(t *testing.T, r *model.Reservation)
	}{
		{
			name:  "anonymous booking",
			actor: Actor{},
			setupMocks: func(f *reservationFixture) {
				f.repo.On("Create", ctx, mock.Anything).Return(nil)
				f.notify.On("NotifyAdmins", ctx, mock.MatchedBy(func(in NotificationInput) bool {
					return in.Type == model.NotificationReservation && in.Data["reservation_id"] != ""
				})).Return(nil)
				f.mail.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
					return e.To == "jeanne@example.com"
				})).Return(nil)
			},
			check: func(t *testing.T, r *model.Reservation) {
				assert.Nil(t, r.UserID)
				assert.Equal(t, model.ReservationPending, r.Status)
				assert.Equal(t, model.FrequencyOnce, r.Frequency)
				assert.Equal(t, "Merci", r.Message)
				assert.Equal(t, model.StringList{"vitres"}, r.Options)
				assert.Equal(t, "jeanne@example.com", r.Email)
			},
		},
		{
			name:  "signed in booking is linked",
			actor: Actor{UserID: "u1", Role: model.RoleClient},
			setupMocks: func(f *reservationFixture) {
				f.repo.On("Create", ctx, mock.Anything).Return(nil)
				f.notify.On("NotifyAdmins", ctx, mock.Anything).Return(errors.New("bus down"))
				f.mail.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))
			},
			check: func(t *testing.T, r *model.Reservation) {
				require.NotNil(t, r.UserID)
				assert.Equal(t, "u1", *r.UserID)
			},
		},
		{
			name:       "consent required",
			mutate:     func(in *CreateReservationInput) { in.Consentement = false },
			setupMocks: func(f *reservationFixture) {},
			wantErr:    ErrConsentRequired,
		},
		{
			name:       "date in the past",
			mutate:     func(in *CreateReservationInput) { in.Date = fixedNow.Add(-time.Hour) },
			setupMocks: func(f *reservationFixture) {},
			wantErr:    ErrReservationDateInPast,
		},
		{
			name: "store failure",
			setupMocks: func(f *reservationFixture) {
				f.repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))
			},
			wantErr: errInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReservationFixture()
			tt.setupMocks(f)
			in := validReservationInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			r, err := f.svc.Create(ctx, tt.actor, in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.notify.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				tt.check(t, r)
			}
			f.repo.AssertExpectations(t)
			f.notify.AssertExpectations(t)
			f.mail.AssertExpectations(t)
		})
	}
}

func TestReservationService_Get(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture()
	f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationPending, "u1"), nil)
	f.repo.On("FindByID", ctx, "r404").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Get(ctx, Actor{UserID: "u1", Role: model.RoleClient}, "r1")
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, Actor{UserID: "admin", Role: model.RoleAdmin}, "r1")
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, Actor{UserID: "u2", Role: model.RoleClient}, "r1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Get(ctx, Actor{UserID: "u1"}, "r404")
	assertAppError(t, err, http.StatusNotFound, "RESERVATION_NOT_FOUND")
}

func TestReservationService_List(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture()
	f.repo.On("List", ctx, repository.ReservationFilter{UserID: "u1", Status: model.ReservationConfirmed}, repository.PageQuery{Limit: 10}).
		Return(&repository.PageResult[model.Reservation]{Items: []model.Reservation{{ID: "r1"}}, Total: 1}, nil)

	res, err := f.svc.ListMine(ctx, Actor{UserID: "u1"}, model.ReservationConfirmed, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	_, err = f.svc.List(ctx, ReservationListFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReservationService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	t.Run("allowed transition notifies the owner", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationPending, "u1"), nil)
		f.repo.On("UpdateStatus", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
			return r.Status == model.ReservationConfirmed && r.UpdatedAt.Equal(fixedNow)
		})).Return(nil)
		f.notify.On("Notify", ctx, "u1", mock.MatchedBy(func(in NotificationInput) bool {
			return in.Title == "Réservation confirmée" && in.Data["status"] == "confirmed"
		})).Return(&model.Notification{}, nil)

		r, err := f.svc.UpdateStatus(ctx, "r1", model.ReservationConfirmed)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationConfirmed, r.Status)
		f.repo.AssertExpectations(t)
		f.notify.AssertExpectations(t)
	})

	t.Run("anonymous reservation has nobody to notify", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationConfirmed, ""), nil)
		f.repo.On("UpdateStatus", ctx, mock.Anything).Return(nil)

		_, err := f.svc.UpdateStatus(ctx, "r1", model.ReservationInProgress)
		require.NoError(t, err)
		f.notify.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forbidden transition", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationCompleted, "u1"), nil)

		_, err := f.svc.UpdateStatus(ctx, "r1", model.ReservationPending)
		ae := assertAppError(t, err, http.StatusConflict, "INVALID_STATUS_TRANSITION")
		assert.Equal(t, model.ReservationCompleted, ae.Detail["from"])
		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newReservationFixture()
		_, err := f.svc.UpdateStatus(ctx, "r1", "archived")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestReservationService_Reply(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	f := newReservationFixture()
	f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationPending, "u1"), nil)
	f.repo.On("UpdateStatus", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
		return r.Status == model.ReservationReplied && r.Reply == "Nous passerons mardi." && r.RepliedAt != nil
	})).Return(nil)
	f.mail.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
		return e.To == "jeanne@example.com"
	})).Return(nil)
	f.notify.On("Notify", ctx, "u1", mock.Anything).Return(&model.Notification{}, nil)

	r, err := f.svc.Reply(ctx, "r1", ReplyInput{Message: "<p>Nous passerons mardi.</p>"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, *r.RepliedAt)
	f.repo.AssertExpectations(t)
	f.mail.AssertExpectations(t)
	f.notify.AssertExpectations(t)
}

func TestReservationService_Cancel(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)
	owner := Actor{UserID: "u1", Role: model.RoleClient}

	t.Run("owner cancels a confirmed reservation", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationConfirmed, "u1"), nil)
		f.repo.On("UpdateStatus", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
			return r.Status == model.ReservationCancelled
		})).Return(nil)
		f.notify.On("NotifyAdmins", ctx, mock.Anything).Return(nil)

		r, err := f.svc.Cancel(ctx, owner, "r1")
		require.NoError(t, err)
		assert.Equal(t, model.ReservationCancelled, r.Status)
	})

	t.Run("in progress cannot be cancelled by the client", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationInProgress, "u1"), nil)

		_, err := f.svc.Cancel(ctx, owner, "r1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("someone else's reservation", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationPending, "u2"), nil)

		_, err := f.svc.Cancel(ctx, owner, "r1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestReservationService_Delete(t *testing.T) {
	ctx := context.Background()
	freezeTime(t, fixedNow)

	f := newReservationFixture()
	f.repo.On("FindByID", ctx, "r1").Return(ownedReservation(model.ReservationCompleted, "u1"), nil)
	f.repo.On("UpdateStatus", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
		return r.Status == model.ReservationDeleted
	})).Return(nil)
	f.repo.On("FindByID", ctx, "r2").Return(ownedReservation(model.ReservationDeleted, "u1"), nil)

	assert.NoError(t, f.svc.Delete(ctx, "r1"))
	assert.ErrorIs(t, f.svc.Delete(ctx, "r2"), ErrInvalidTransition)
	assert.ErrorIs(t, f.svc.Delete(ctx, ""), ErrIDRequired)
}
