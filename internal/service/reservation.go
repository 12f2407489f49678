package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/sanitize"
)

var (
	ErrReservationNotFound   = apperror.NotFound("RESERVATION_NOT_FOUND", "reservation not found")
	ErrInvalidTransition     = apperror.Conflict("INVALID_STATUS_TRANSITION", "this status change is not allowed")
	ErrInvalidStatus         = apperror.BadRequest("INVALID_STATUS", "unknown status")
	ErrConsentRequired       = apperror.BadRequest("CONSENT_REQUIRED", "consent is required to book a service")
	ErrReservationDateInPast = apperror.BadRequest("INVALID_DATE", "the reservation date must be in the future")
)

var statusLabels = map[model.ReservationStatus]string{
	model.ReservationPending:    "en attente",
	model.ReservationConfirmed:  "confirmée",
	model.ReservationInProgress: "en cours",
	model.ReservationCompleted:  "terminée",
	model.ReservationCancelled:  "annulée",
	model.ReservationReplied:    "traitée",
	model.ReservationDeleted:    "supprimée",
}

type CreateReservationInput struct {
	ServiceID    string          `json:"service_id" validate:"required,max=100"`
	ServiceName  string          `json:"service_name" validate:"required,max=200"`
	Category     string          `json:"category" validate:"omitempty,max=100"`
	FirstName    string          `json:"first_name" validate:"required,max=100"`
	LastName     string          `json:"last_name" validate:"omitempty,max=100"`
	Email        string          `json:"email" validate:"required,email"`
	Phone        string          `json:"phone" validate:"required,max=30"`
	Date         time.Time       `json:"date" validate:"required"`
	Frequency    model.Frequency `json:"frequency" validate:"omitempty,oneof=once weekly biweekly monthly"`
	Address      string          `json:"address" validate:"required,max=300"`
	Options      []string        `json:"options" validate:"omitempty,max=20,dive,max=100"`
	Message      string          `json:"message" validate:"omitempty,max=2000"`
	Consentement bool            `json:"consentement"`
}

type UpdateStatusInput struct {
	Status model.ReservationStatus `json:"status" validate:"required"`
}

type ReplyInput struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// ReservationListFilter narrows the admin listing.
type ReservationListFilter struct {
	Status    model.ReservationStatus
	ServiceID string
	UserID    string
	Limit     int
	Offset    int
}

// ReservationService handles booking requests. Every write notifies the
// other party: admins on creation, the client on status changes.
type ReservationService interface {
	// Create accepts anonymous requests; actor.UserID links the booking when set.
	Create(ctx context.Context, actor Actor, in CreateReservationInput) (*model.Reservation, error)

	// Get returns the reservation to its owner or an admin.
	Get(ctx context.Context, actor Actor, id string) (*model.Reservation, error)
	ListMine(ctx context.Context, actor Actor, status model.ReservationStatus, limit, offset int) (*ListResult[model.Reservation], error)
	List(ctx context.Context, f ReservationListFilter) (*ListResult[model.Reservation], error)

	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) (*model.Reservation, error)
	Reply(ctx context.Context, id string, in ReplyInput) (*model.Reservation, error)

	// Cancel lets the owner cancel a pending, confirmed or replied reservation.
	Cancel(ctx context.Context, actor Actor, id string) (*model.Reservation, error)

	// Delete is a soft delete to the deleted status.
	Delete(ctx context.Context, id string) error
}

type reservationService struct {
	repo   repository.ReservationRepository
	notify NotificationService
	mail   mailer.Sender
	tpl    *mailer.Templates
}

// NewReservationService constructs a new ReservationService.
func NewReservationService(repo repository.ReservationRepository, notify NotificationService, mail mailer.Sender, tpl *mailer.Templates) ReservationService {
	return &reservationService{repo: repo, notify: notify, mail: mail, tpl: tpl}
}

func (s *reservationService) Create(ctx context.Context, actor Actor, in CreateReservationInput) (*model.Reservation, error) {
	if !in.Consentement {
		return nil, ErrConsentRequired
	}
	t := now()
	if !in.Date.After(t) {
		return nil, ErrReservationDateInPast
	}
	freq := in.Frequency
	if freq == "" {
		freq = model.FrequencyOnce
	}

	r := &model.Reservation{
		ID:           uuid.NewString(),
		ServiceID:    in.ServiceID,
		ServiceName:  sanitize.Text(in.ServiceName),
		Category:     sanitize.Text(in.Category),
		FirstName:    sanitize.Text(in.FirstName),
		LastName:     sanitize.Text(in.LastName),
		Email:        normalizeEmail(in.Email),
		Phone:        sanitize.Text(in.Phone),
		Date:         in.Date.UTC(),
		Frequency:    freq,
		Address:      sanitize.Text(in.Address),
		Options:      sanitize.Lines(in.Options),
		Message:      sanitize.Text(in.Message),
		Consentement: true,
		Status:       model.ReservationPending,
		CreatedAt:    t,
		UpdatedAt:    t,
	}
	if !actor.Anonymous() {
		uid := actor.UserID
		r.UserID = &uid
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.notify.NotifyAdmins(ctx, NotificationInput{
		Type:  model.NotificationReservation,
		Title: "Nouvelle réservation",
		Body:  r.ClientName() + " : " + r.ServiceName,
		Data:  map[string]string{"reservation_id": r.ID},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("reservation_id", r.ID).Msg("admins not notified")
	}
	deliver(ctx, s.mail, s.tpl.ReservationConfirmation(r))
	return r, nil
}

func (s *reservationService) Get(ctx context.Context, actor Actor, id string) (*model.Reservation, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !r.OwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *reservationService) ListMine(ctx context.Context, actor Actor, status model.ReservationStatus, limit, offset int) (*ListResult[model.Reservation], error) {
	return s.List(ctx, ReservationListFilter{Status: status, UserID: actor.UserID, Limit: limit, Offset: offset})
}

func (s *reservationService) List(ctx context.Context, f ReservationListFilter) (*ListResult[model.Reservation], error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	pq := pageQuery(f.Limit, f.Offset)
	res, err := s.repo.List(ctx, repository.ReservationFilter{
		UserID:    f.UserID,
		Status:    f.Status,
		ServiceID: f.ServiceID,
	}, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *reservationService) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) (*model.Reservation, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	r, err := s.transition(ctx, id, status, nil)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, r, "Réservation "+statusLabels[status],
		"Votre réservation « "+r.ServiceName+" » est "+statusLabels[status]+".")
	return r, nil
}

func (s *reservationService) Reply(ctx context.Context, id string, in ReplyInput) (*model.Reservation, error) {
	reply := sanitize.Text(in.Message)
	r, err := s.transition(ctx, id, model.ReservationReplied, func(r *model.Reservation) {
		t := now()
		r.Reply = reply
		r.RepliedAt = &t
	})
	if err != nil {
		return nil, err
	}
	deliver(ctx, s.mail, s.tpl.ReservationReply(r))
	s.notifyOwner(ctx, r, "Réponse à votre réservation", reply)
	return r, nil
}

func (s *reservationService) Cancel(ctx context.Context, actor Actor, id string) (*model.Reservation, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.OwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	if !r.Status.Cancellable() {
		return nil, ErrInvalidTransition.WithDetail("status", r.Status)
	}
	r.Status = model.ReservationCancelled
	r.UpdatedAt = now()
	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, notFoundOr(err, ErrReservationNotFound)
	}

	if err := s.notify.NotifyAdmins(ctx, NotificationInput{
		Type:  model.NotificationReservation,
		Title: "Réservation annulée",
		Body:  r.ClientName() + " a annulé « " + r.ServiceName + " »",
		Data:  map[string]string{"reservation_id": r.ID},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("reservation_id", r.ID).Msg("admins not notified")
	}
	return r, nil
}

func (s *reservationService) Delete(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, model.ReservationDeleted, nil)
	return err
}

func (s *reservationService) find(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrReservationNotFound)
	}
	return r, nil
}

func (s *reservationService) transition(ctx context.Context, id string, next model.ReservationStatus, apply func(r *model.Reservation)) (*model.Reservation, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition.WithDetail("from", r.Status).WithDetail("to", next)
	}
	r.Status = next
	r.UpdatedAt = now()
	if apply != nil {
		apply(r)
	}
	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, notFoundOr(err, ErrReservationNotFound)
	}
	return r, nil
}

func (s *reservationService) notifyOwner(ctx context.Context, r *model.Reservation, title, body string) {
	if r.UserID == nil {
		return
	}
	if _, err := s.notify.Notify(ctx, *r.UserID, NotificationInput{
		Type:  model.NotificationReservation,
		Title: title,
		Body:  body,
		Data:  map[string]string{"reservation_id": r.ID, "status": string(r.Status)},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("reservation_id", r.ID).Msg("owner not notified")
	}
}
