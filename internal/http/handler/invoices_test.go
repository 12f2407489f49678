package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
	serviceMocks "llouest/internal/service/mocks"
)

func TestGenerateInvoice(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := newTestApp(adminActor)
	app.Post("/invoices", GenerateInvoice(mockSvc))

	in := service.GenerateInvoiceInput{
		UserID: clientActor.UserID,
		Lines:  []model.InvoiceLine{{Description: "Ménage 3h", Quantity: 3, UnitPriceCents: 2500}},
	}

	t.Run("created", func(t *testing.T) {
		mockSvc.On("Generate", mock.Anything, in).
			Return(&model.Invoice{ID: testID, Number: "FAC-2026-0001"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/invoices", in))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("no lines", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/invoices", service.GenerateInvoiceInput{UserID: clientActor.UserID}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		mockSvc.On("Generate", mock.Anything, in).Return(nil, service.ErrInvoiceRecipient).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/invoices", in))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVOICE_RECIPIENT_NOT_FOUND", decodeError(t, resp).Error.Code)
	})
	mockSvc.AssertExpectations(t)
}

func TestListInvoices(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	empty := &service.ListResult[model.Invoice]{Items: []model.Invoice{}}

	client := newTestApp(clientActor)
	client.Get("/users/me/invoices", ListMyInvoices(mockSvc))
	admin := newTestApp(adminActor)
	admin.Get("/invoices", ListInvoices(mockSvc))

	mockSvc.On("ListForUser", mock.Anything, clientActor.UserID, 10, 0).Return(empty, nil).Twice()

	resp, _ := client.Test(httptest.NewRequest(http.MethodGet, "/users/me/invoices", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = admin.Test(httptest.NewRequest(http.MethodGet, "/invoices?user_id="+clientActor.UserID, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = admin.Test(httptest.NewRequest(http.MethodGet, "/invoices?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	mockSvc.AssertExpectations(t)
}

func TestDownloadInvoice(t *testing.T) {
	mockSvc := new(serviceMocks.MockInvoiceService)
	app := newTestApp(clientActor)
	app.Get("/invoices/:id/download", DownloadInvoice(mockSvc))

	t.Run("pdf", func(t *testing.T) {
		rc := io.NopCloser(strings.NewReader("%PDF-1.3"))
		mockSvc.On("Download", mock.Anything, clientActor, testID).
			Return(rc, &model.Invoice{ID: testID, Number: "FAC-2026-0007"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/"+testID+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="FAC-2026-0007.pdf"`)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-1.3", string(body))
	})

	t.Run("someone else's invoice", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, clientActor, testID).Return(nil, nil, service.ErrForbidden).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/invoices/"+testID+"/download", nil))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	mockSvc.AssertExpectations(t)
}
