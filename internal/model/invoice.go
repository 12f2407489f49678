package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Invoice bounds. With a VAT rate up to 100% the totals stay far inside int64.
const (
	MaxInvoiceLines   = 100
	MaxLineQuantity   = 10_000
	MaxUnitPriceCents = 100_000_000
)

// InvoiceLine is one billed item. Amounts are integer cents.
type InvoiceLine struct {
	Description    string `json:"description" validate:"required,max=200"`
	Quantity       int    `json:"quantity" validate:"required,gt=0,max=10000"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0,max=100000000"`
}

// Valid reports whether the line is within the invoice bounds.
func (l InvoiceLine) Valid() bool {
	return l.Quantity > 0 && l.Quantity <= MaxLineQuantity &&
		l.UnitPriceCents >= 0 && l.UnitPriceCents <= MaxUnitPriceCents
}

func (l InvoiceLine) TotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

type InvoiceLines []InvoiceLine

func (l InvoiceLines) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]InvoiceLine(l))
}

func (l *InvoiceLines) Scan(src any) error {
	return scanJSON(src, (*[]InvoiceLine)(l))
}

// Invoice is a generated PDF invoice. VATRateBP is in basis points (2000 = 20%).
type Invoice struct {
	ID            string       `json:"id" db:"id"`
	Number        string       `json:"number" db:"number"`
	UserID        string       `json:"user_id" db:"user_id"`
	ReservationID *string      `json:"reservation_id,omitempty" db:"reservation_id"`
	Lines         InvoiceLines `json:"lines" db:"lines"`
	SubtotalCents int64        `json:"subtotal_cents" db:"subtotal_cents"`
	VATRateBP     int          `json:"vat_rate_bp" db:"vat_rate_bp"`
	VATCents      int64        `json:"vat_cents" db:"vat_cents"`
	TotalCents    int64        `json:"total_cents" db:"total_cents"`
	Notes         string       `json:"notes,omitempty" db:"notes"`
	IssuedAt      time.Time    `json:"issued_at" db:"issued_at"`
	DueAt         time.Time    `json:"due_at" db:"due_at"`
	StoragePath   string       `json:"storage_path" db:"storage_path"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// ComputeTotals fills the subtotal, VAT and total from the lines.
// VAT is rounded half up to the cent.
func (inv *Invoice) ComputeTotals() {
	var subtotal int64
	for _, l := range inv.Lines {
		subtotal += l.TotalCents()
	}
	inv.SubtotalCents = subtotal
	inv.VATCents = (subtotal*int64(inv.VATRateBP) + 5000) / 10000
	inv.TotalCents = inv.SubtotalCents + inv.VATCents
}

// FormatEuros renders cents the French way, e.g. 123456 -> "1 234,56 €".
func FormatEuros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s%s,%02d €", sign, b.String(), cents%100)
}
