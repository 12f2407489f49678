package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Preferences are stored as a JSONB column.
type Preferences struct {
	Notifications bool   `json:"notifications"`
	Language      string `json:"language"`
	FCMToken      string `json:"fcm_token,omitempty"`
}

func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Preferences) Scan(src any) error {
	return scanJSON(src, p)
}

// Location is stored as a JSONB column.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	City string  `json:"city,omitempty"`
}

func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *Location) Scan(src any) error {
	return scanJSON(src, l)
}

// User is a registered client or administrator.
type User struct {
	ID            string      `json:"id" db:"id"`
	Email         string      `json:"email" db:"email"`
	PasswordHash  string      `json:"-" db:"password_hash"`
	Name          string      `json:"name" db:"name"`
	Phone         string      `json:"phone" db:"phone"`
	Address       string      `json:"address" db:"address"`
	Role          Role        `json:"role" db:"role"`
	Preferences   Preferences `json:"preferences" db:"preferences"`
	Location      Location    `json:"location" db:"location"`
	EmailVerified bool        `json:"email_verified" db:"email_verified"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences applies to freshly registered users.
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Language: "fr"}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported JSON column type")
	}
}
