package model

import "time"

type NotificationType string

const (
	NotificationReservation NotificationType = "reservation"
	NotificationReview      NotificationType = "review"
	NotificationContact     NotificationType = "contact"
	NotificationInvoice     NotificationType = "invoice"
	NotificationAccount     NotificationType = "account"
	NotificationSystem      NotificationType = "system"
)

// Notification is an in-app notification addressed to one user.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Data      StringMap        `json:"data" db:"data"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
