package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationInProgress ReservationStatus = "in_progress"
	ReservationCompleted  ReservationStatus = "completed"
	ReservationCancelled  ReservationStatus = "cancelled"
	ReservationReplied    ReservationStatus = "replied"
	ReservationDeleted    ReservationStatus = "deleted"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:    {ReservationConfirmed, ReservationCancelled, ReservationReplied},
	ReservationReplied:    {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed:  {ReservationInProgress, ReservationCompleted, ReservationCancelled},
	ReservationInProgress: {ReservationCompleted, ReservationCancelled},
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationInProgress, ReservationCompleted,
		ReservationCancelled, ReservationReplied, ReservationDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reservation in status s may move to next.
// Every status except deleted may be soft-deleted.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s == ReservationDeleted {
		return false
	}
	if next == ReservationDeleted {
		return true
	}
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable is the set a client may cancel on their own.
func (s ReservationStatus) Cancellable() bool {
	return s == ReservationPending || s == ReservationConfirmed || s == ReservationReplied
}

type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// StringList is a text[]-like list persisted as JSONB.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

// Reservation is a service booking request. UserID is empty for anonymous requests.
type Reservation struct {
	ID           string            `json:"id" db:"id"`
	UserID       *string           `json:"user_id,omitempty" db:"user_id"`
	ServiceID    string            `json:"service_id" db:"service_id"`
	ServiceName  string            `json:"service_name" db:"service_name"`
	Category     string            `json:"category" db:"category"`
	FirstName    string            `json:"first_name" db:"first_name"`
	LastName     string            `json:"last_name" db:"last_name"`
	Email        string            `json:"email" db:"email"`
	Phone        string            `json:"phone" db:"phone"`
	Date         time.Time         `json:"date" db:"date"`
	Frequency    Frequency         `json:"frequency" db:"frequency"`
	Address      string            `json:"address" db:"address"`
	Options      StringList        `json:"options" db:"options"`
	Message      string            `json:"message" db:"message"`
	Consentement bool              `json:"consentement" db:"consentement"`
	Status       ReservationStatus `json:"status" db:"status"`
	Reply        string            `json:"reply,omitempty" db:"reply"`
	RepliedAt    *time.Time        `json:"replied_at,omitempty" db:"replied_at"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether userID booked the reservation.
func (r *Reservation) OwnedBy(userID string) bool {
	return r.UserID != nil && *r.UserID == userID
}

func (r *Reservation) ClientName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}
