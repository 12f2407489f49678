package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"llouest/internal/model"
	"llouest/internal/service"
	serviceMocks "llouest/internal/service/mocks"
)

func TestCreateReservation(t *testing.T) {
	mockSvc := new(serviceMocks.MockReservationService)
	date := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	body := map[string]any{
		"service_id":   "menage",
		"service_name": "Ménage",
		"first_name":   "Jeanne",
		"email":        "jeanne@example.fr",
		"phone":        "0600000000",
		"date":         date.Format(time.RFC3339),
		"address":      "1 rue de Brest",
		"consentement": true,
	}
	isInput := mock.MatchedBy(func(in service.CreateReservationInput) bool {
		return in.ServiceID == "menage" && in.Date.Equal(date) && in.Consentement
	})

	t.Run("anonymous", func(t *testing.T) {
		app := newTestApp(service.Actor{})
		app.Post("/reservations", CreateReservation(mockSvc))
		mockSvc.On("Create", mock.Anything, service.Actor{}, isInput).
			Return(&model.Reservation{ID: testID, Status: model.ReservationPending}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/reservations", body))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var r model.Reservation
		json.NewDecoder(resp.Body).Decode(&r)
		assert.Equal(t, model.ReservationPending, r.Status)
	})

	t.Run("signed in", func(t *testing.T) {
		app := newTestApp(clientActor)
		app.Post("/reservations", CreateReservation(mockSvc))
		mockSvc.On("Create", mock.Anything, clientActor, isInput).
			Return(&model.Reservation{ID: testID}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/reservations", body))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("missing email", func(t *testing.T) {
		app := newTestApp(service.Actor{})
		app.Post("/reservations", CreateReservation(mockSvc))
		bad := map[string]any{"service_id": "menage"}

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/reservations", bad))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	mockSvc.AssertExpectations(t)
}

func TestListReservations(t *testing.T) {
	mockSvc := new(serviceMocks.MockReservationService)
	app := newTestApp(adminActor)
	app.Get("/reservations", ListReservations(mockSvc))

	mockSvc.On("List", mock.Anything, service.ReservationListFilter{
		Status:    model.ReservationConfirmed,
		ServiceID: "menage",
		Limit:     5,
		Offset:    10,
	}).Return(&service.ListResult[model.Reservation]{Items: []model.Reservation{}, Total: 0}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/reservations?status=confirmed&service_id=menage&limit=5&offset=10", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestUpdateReservationStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockReservationService)
	app := newTestApp(adminActor)
	app.Patch("/reservations/:id/status", UpdateReservationStatus(mockSvc))

	t.Run("invalid transition", func(t *testing.T) {
		mockSvc.On("UpdateStatus", mock.Anything, testID, model.ReservationInProgress).
			Return(nil, service.ErrInvalidTransition).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/reservations/"+testID+"/status", map[string]string{"status": "in_progress"}))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INVALID_STATUS_TRANSITION", decodeError(t, resp).Error.Code)
	})

	t.Run("confirmed", func(t *testing.T) {
		mockSvc.On("UpdateStatus", mock.Anything, testID, model.ReservationConfirmed).
			Return(&model.Reservation{ID: testID, Status: model.ReservationConfirmed}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/reservations/"+testID+"/status", map[string]string{"status": "confirmed"}))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
	mockSvc.AssertExpectations(t)
}

func TestReplyAndCancelReservation(t *testing.T) {
	mockSvc := new(serviceMocks.MockReservationService)
	admin := newTestApp(adminActor)
	admin.Post("/reservations/:id/reply", ReplyReservation(mockSvc))
	admin.Delete("/reservations/:id", DeleteReservation(mockSvc))
	client := newTestApp(clientActor)
	client.Post("/reservations/:id/cancel", CancelReservation(mockSvc))
	client.Get("/reservations/:id", GetReservation(mockSvc))

	mockSvc.On("Reply", mock.Anything, testID, service.ReplyInput{Message: "Bien reçu"}).
		Return(&model.Reservation{ID: testID, Status: model.ReservationReplied}, nil).Once()
	resp, _ := admin.Test(jsonRequest(http.MethodPost, "/reservations/"+testID+"/reply", service.ReplyInput{Message: "Bien reçu"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = admin.Test(jsonRequest(http.MethodPost, "/reservations/"+testID+"/reply", service.ReplyInput{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	mockSvc.On("Cancel", mock.Anything, clientActor, testID).
		Return(&model.Reservation{ID: testID, Status: model.ReservationCancelled}, nil).Once()
	resp, _ = client.Test(httptest.NewRequest(http.MethodPost, "/reservations/"+testID+"/cancel", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mockSvc.On("Get", mock.Anything, clientActor, testID).Return(nil, service.ErrForbidden).Once()
	resp, _ = client.Test(httptest.NewRequest(http.MethodGet, "/reservations/"+testID, nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	mockSvc.On("Delete", mock.Anything, testID).Return(nil).Once()
	resp, _ = admin.Test(httptest.NewRequest(http.MethodDelete, "/reservations/"+testID, nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	mockSvc.AssertExpectations(t)
}
