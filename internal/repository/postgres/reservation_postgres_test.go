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

var reservationRowColumns = []string{"id", "user_id", "service_id", "service_name", "category",
	"first_name", "last_name", "email", "phone", "date", "frequency", "address", "options",
	"message", "consentement", "status", "reply", "replied_at", "created_at", "updated_at"}

func TestReservationPostgres_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationPostgres(db)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.Reservation{
		ID:        "r-1",
		ServiceID: "menage",
		Status:    model.ReservationPending,
		Options:   model.StringList{"vitres"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationPostgres_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationPostgres(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(reservationRowColumns).
		AddRow("r-1", "u-1", "menage", "Ménage", "domicile", "Jeanne", "Martin", "j@example.com",
			"0600000000", now, "weekly", "1 rue de Brest", []byte(`["vitres","repassage"]`), "",
			true, "pending", "", nil, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \$1`).
		WithArgs("r-1").
		WillReturnRows(rows)

	r, err := repo.FindByID(context.Background(), "r-1")

	assert.NoError(t, err)
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, model.StringList{"vitres", "repassage"}, r.Options)
	if assert.NotNil(t, r.UserID) {
		assert.Equal(t, "u-1", *r.UserID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationPostgres_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationPostgres(db)

	t.Run("default hides deleted", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "reservations" WHERE (.+)"status" != \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT (.+) FROM "reservations"`).
			WillReturnRows(sqlmock.NewRows(reservationRowColumns))

		res, err := repo.List(context.Background(), repository.ReservationFilter{UserID: "u-1"},
			repository.PageQuery{Limit: 20})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
	})

	t.Run("explicit status", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "reservations" WHERE (.+)"status" = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT (.+) FROM "reservations"`).
			WillReturnRows(sqlmock.NewRows(reservationRowColumns))

		_, err := repo.List(context.Background(),
			repository.ReservationFilter{Status: model.ReservationDeleted},
			repository.PageQuery{Limit: 20})
		assert.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationPostgres_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationPostgres(db)

	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), &model.Reservation{ID: "gone", Status: model.ReservationCancelled})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
