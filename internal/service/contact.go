package service

import (
	"context"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/sanitize"
)

var ErrContactNotFound = apperror.NotFound("CONTACT_NOT_FOUND", "message not found")

type CreateContactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactService handles the public contact form and its admin inbox.
type ContactService interface {
	Create(ctx context.Context, in CreateContactInput) (*model.ContactMessage, error)
	List(ctx context.Context, status model.ContactStatus, limit, offset int) (*ListResult[model.ContactMessage], error)

	// Get marks a new message as read.
	Get(ctx context.Context, id string) (*model.ContactMessage, error)
	Reply(ctx context.Context, id string, in ReplyInput) (*model.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

type contactService struct {
	repo   repository.ContactRepository
	notify NotificationService
	mail   mailer.Sender
	tpl    *mailer.Templates
}

// NewContactService constructs a new ContactService.
func NewContactService(repo repository.ContactRepository, notify NotificationService, mail mailer.Sender, tpl *mailer.Templates) ContactService {
	return &contactService{repo: repo, notify: notify, mail: mail, tpl: tpl}
}

func (s *contactService) Create(ctx context.Context, in CreateContactInput) (*model.ContactMessage, error) {
	m := &model.ContactMessage{
		ID:        uuid.NewString(),
		Name:      sanitize.Text(in.Name),
		Email:     normalizeEmail(in.Email),
		Phone:     sanitize.Text(in.Phone),
		Subject:   sanitize.Text(in.Subject),
		Message:   sanitize.Text(in.Message),
		Status:    model.ContactNew,
		CreatedAt: now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.notify.NotifyAdmins(ctx, NotificationInput{
		Type:  model.NotificationContact,
		Title: "Nouveau message",
		Body:  m.Name + " : " + m.Subject,
		Data:  map[string]string{"contact_id": m.ID},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("contact_id", m.ID).Msg("admins not notified")
	}
	deliver(ctx, s.mail, s.tpl.ContactAcknowledgement(m))
	return m, nil
}

func (s *contactService) List(ctx context.Context, status model.ContactStatus, limit, offset int) (*ListResult[model.ContactMessage], error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	pq := pageQuery(limit, offset)
	res, err := s.repo.List(ctx, status, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *contactService) Get(ctx context.Context, id string) (*model.ContactMessage, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == model.ContactNew {
		m.Status = model.ContactRead
		if err := s.repo.Update(ctx, m); err != nil {
			return nil, notFoundOr(err, ErrContactNotFound)
		}
	}
	return m, nil
}

func (s *contactService) Reply(ctx context.Context, id string, in ReplyInput) (*model.ContactMessage, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	t := now()
	m.Reply = sanitize.Text(in.Message)
	m.RepliedAt = &t
	m.Status = model.ContactReplied
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, notFoundOr(err, ErrContactNotFound)
	}
	if err := s.mail.Send(ctx, s.tpl.ContactReply(m)); err != nil {
		return nil, ErrEmailDelivery.Wrap(err)
	}
	return m, nil
}

func (s *contactService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, ErrContactNotFound)
	}
	return nil
}

func (s *contactService) find(ctx context.Context, id string) (*model.ContactMessage, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrContactNotFound)
	}
	return m, nil
}
