package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"llouest/internal/apperror"
	"llouest/internal/config"
	"llouest/internal/logger"
	"llouest/internal/mailer"
	"llouest/internal/model"
	"llouest/internal/repository"
	"llouest/internal/sanitize"
	"llouest/internal/storage"
)

const defaultPaymentDays = 30

var (
	ErrInvoiceNotFound  = apperror.NotFound("INVOICE_NOT_FOUND", "invoice not found")
	ErrInvalidInvoice   = apperror.BadRequest("INVALID_INVOICE_LINES", "an invoice needs 1 to 100 lines, each with a quantity of 1 to 10000 and a price of 0 to 1000000 euros")
	ErrInvoiceRecipient = apperror.BadRequest("INVOICE_RECIPIENT_NOT_FOUND", "invoice recipient does not exist")
)

type GenerateInvoiceInput struct {
	UserID        string              `json:"user_id" validate:"required"`
	ReservationID *string             `json:"reservation_id"`
	Lines         []model.InvoiceLine `json:"lines" validate:"required,min=1,max=100,dive"`
	Notes         string              `json:"notes" validate:"max=1000"`
	DueInDays     int                 `json:"due_in_days" validate:"omitempty,min=1,max=120"`
}

// InvoiceRenderer turns an invoice into a PDF document.
type InvoiceRenderer interface {
	Render(inv *model.Invoice, client *model.User) ([]byte, error)
}

// InvoiceService issues PDF invoices and serves them back to their owner.
type InvoiceService interface {
	// Generate numbers, renders and stores the invoice, then notifies and
	// emails the client. The stored PDF is removed if the insert fails.
	Generate(ctx context.Context, in GenerateInvoiceInput) (*model.Invoice, error)
	// ListForUser lists one user's invoices; an empty userID lists all of them.
	ListForUser(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Invoice], error)
	Get(ctx context.Context, actor Actor, id string) (*model.Invoice, error)
	Download(ctx context.Context, actor Actor, id string) (io.ReadCloser, *model.Invoice, error)
	Delete(ctx context.Context, id string) error
}

type invoiceService struct {
	repo     repository.InvoiceRepository
	users    repository.UserRepository
	store    storage.Storage
	renderer InvoiceRenderer
	notify   NotificationService
	mail     mailer.Sender
	tpl      *mailer.Templates
	company  config.CompanyConfig
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	users repository.UserRepository,
	store storage.Storage,
	renderer InvoiceRenderer,
	notify NotificationService,
	mail mailer.Sender,
	tpl *mailer.Templates,
	company config.CompanyConfig,
) InvoiceService {
	return &invoiceService{
		repo:     repo,
		users:    users,
		store:    store,
		renderer: renderer,
		notify:   notify,
		mail:     mail,
		tpl:      tpl,
		company:  company,
	}
}

func (s *invoiceService) Generate(ctx context.Context, in GenerateInvoiceInput) (*model.Invoice, error) {
	lines, err := checkLines(in.Lines)
	if err != nil {
		return nil, err
	}
	client, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrInvoiceRecipient)
	}

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("invoice sequence: %w", err))
	}
	issued := now()
	days := in.DueInDays
	if days == 0 {
		days = defaultPaymentDays
	}
	inv := &model.Invoice{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("%s-%d-%04d", s.company.InvoicePrefix, issued.Year(), seq),
		UserID:        client.ID,
		ReservationID: in.ReservationID,
		Lines:         lines,
		VATRateBP:     s.company.VATRateBP,
		Notes:         sanitize.Text(in.Notes),
		IssuedAt:      issued,
		DueAt:         issued.AddDate(0, 0, days),
		CreatedAt:     issued,
	}
	inv.ComputeTotals()

	pdf, err := s.renderer.Render(inv, client)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	inv.StoragePath = storage.PrefixInvoices + "/" + inv.Number + ".pdf"
	if _, err := s.store.Put(ctx, inv.StoragePath, bytes.NewReader(pdf), storage.PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: "application/pdf",
		Metadata:    map[string]string{"invoice-number": inv.Number, "user-id": client.ID},
	}); err != nil {
		return nil, apperror.Internal(fmt.Errorf("upload to storage: %w", err))
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		if delErr := s.store.Delete(ctx, inv.StoragePath); delErr != nil {
			return nil, apperror.Internal(fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr))
		}
		return nil, apperror.Internal(fmt.Errorf("db save failed: %w", err))
	}

	if _, err := s.notify.Notify(ctx, client.ID, NotificationInput{
		Type:  model.NotificationInvoice,
		Title: "Nouvelle facture",
		Body:  fmt.Sprintf("La facture %s de %s est disponible.", inv.Number, model.FormatEuros(inv.TotalCents)),
		Data:  map[string]string{"invoice_id": inv.ID, "number": inv.Number},
	}); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("invoice", inv.Number).Msg("client not notified")
	}
	deliver(ctx, s.mail, s.tpl.InvoiceIssued(client, inv, pdf))

	return inv, nil
}

func (s *invoiceService) ListForUser(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Invoice], error) {
	pq := pageQuery(limit, offset)
	res, err := s.repo.ListByUser(ctx, userID, pq)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return listResult(res, pq), nil
}

func (s *invoiceService) Get(ctx context.Context, actor Actor, id string) (*model.Invoice, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrInvoiceNotFound)
	}
	if inv.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return inv, nil
}

func (s *invoiceService) Download(ctx context.Context, actor Actor, id string) (io.ReadCloser, *model.Invoice, error) {
	inv, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, inv.StoragePath)
	if err != nil {
		return nil, nil, objectErr(ctx, err, ErrInvoiceNotFound)
	}
	return rc, inv, nil
}

func (s *invoiceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrInvoiceNotFound)
	}
	if err := s.store.Delete(ctx, inv.StoragePath); err != nil {
		return apperror.Internal(fmt.Errorf("delete storage: %w", err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func checkLines(in []model.InvoiceLine) (model.InvoiceLines, error) {
	if len(in) == 0 || len(in) > model.MaxInvoiceLines {
		return nil, ErrInvalidInvoice
	}
	out := make(model.InvoiceLines, 0, len(in))
	for i, l := range in {
		desc := sanitize.Text(l.Description)
		if desc == "" || !l.Valid() {
			return nil, ErrInvalidInvoice.WithDetail("line", i)
		}
		out = append(out, model.InvoiceLine{Description: desc, Quantity: l.Quantity, UnitPriceCents: l.UnitPriceCents})
	}
	return out, nil
}
