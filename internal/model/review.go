package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a client's rating of a service. Images holds storage keys.
type Review struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	ServiceID string     `json:"service_id" db:"service_id"`
	Rating    int        `json:"rating" db:"rating"`
	Comment   string     `json:"comment" db:"comment"`
	Images    StringList `json:"images" db:"images"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// RatingSummary aggregates the reviews of one service.
type RatingSummary struct {
	ServiceID string  `json:"service_id" db:"service_id"`
	Count     int     `json:"count" db:"count"`
	Average   float64 `json:"average" db:"average"`
}
