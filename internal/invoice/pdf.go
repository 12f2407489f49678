// Package invoice renders invoices as A4 PDF documents.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"llouest/internal/config"
	"llouest/internal/model"
)

const (
	margin     = 15.0
	lineHeight = 6.0
)

// column widths of the line table, in mm
var widths = [4]float64{95, 20, 32.5, 32.5}

// Renderer draws invoices with the company header from configuration.
type Renderer struct {
	company config.CompanyConfig
	loc     *time.Location
}

func NewRenderer(company config.CompanyConfig, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{company: company, loc: loc}
}

// Render returns the PDF bytes. The output only depends on its inputs.
func (r *Renderer) Render(inv *model.Invoice, client *model.User) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.SetModificationDate(inv.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Facture "+inv.Number), false)
	pdf.SetAuthor(tr(r.company.Name), false)
	pdf.AddPage()

	r.header(pdf, tr, inv, client)
	r.lines(pdf, tr, inv)
	r.totals(pdf, tr, inv)

	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}
	r.footer(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, inv *model.Invoice, client *model.User) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(r.company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range []string{r.company.Address, r.company.Email, r.company.Phone} {
		if s != "" {
			pdf.CellFormat(0, 4.5, tr(s), "", 1, "L", false, 0, "")
		}
	}
	if r.company.SIRET != "" {
		pdf.CellFormat(0, 4.5, "SIRET : "+r.company.SIRET, "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(90, 7, tr("Facture n° "+inv.Number), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(90, 5, tr("Date d'émission : "+r.day(inv.IssuedAt)), "", 1, "L", false, 0, "")
	pdf.CellFormat(90, 5, tr("Date d'échéance : "+r.day(inv.DueAt)), "", 1, "L", false, 0, "")
	bottom := pdf.GetY()

	pdf.SetXY(120, top)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(75, 6, "Client", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range []string{client.Name, client.Email, client.Address, client.Phone} {
		if s != "" {
			pdf.CellFormat(75, 5, tr(s), "", 2, "L", false, 0, "")
		}
	}
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetXY(margin, bottom+10)
}

func (r *Renderer) lines(pdf *fpdf.Fpdf, tr func(string) string, inv *model.Invoice) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Désignation", "Quantité", "Prix unitaire HT", "Total HT"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range inv.Lines {
		pdf.CellFormat(widths[0], lineHeight, tr(l.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], lineHeight, fmt.Sprintf("%d", l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], lineHeight, tr(model.FormatEuros(l.UnitPriceCents)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], lineHeight, tr(model.FormatEuros(l.TotalCents())), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, tr func(string) string, inv *model.Invoice) {
	pdf.Ln(4)
	label := widths[0] + widths[1] + widths[2]
	rows := []struct {
		name  string
		cents int64
		bold  bool
	}{
		{"Total HT", inv.SubtotalCents, false},
		{"TVA " + VATLabel(inv.VATRateBP), inv.VATCents, false},
		{"Total TTC", inv.TotalCents, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(label, lineHeight, tr(row.name), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], lineHeight, tr(model.FormatEuros(row.cents)), "", 1, "R", false, 0, "")
	}
}

func (r *Renderer) footer(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 4, tr("En cas de retard de paiement, une indemnité forfaitaire de 40 € pour frais de recouvrement sera exigible."), "", "C", false)
}

func (r *Renderer) day(t time.Time) string {
	return t.In(r.loc).Format("02/01/2006")
}

// VATLabel formats a basis point rate, e.g. 2000 -> "20 %", 550 -> "5,5 %".
func VATLabel(bp int) string {
	whole, frac := bp/100, bp%100
	switch {
	case frac == 0:
		return fmt.Sprintf("%d %%", whole)
	case frac%10 == 0:
		return fmt.Sprintf("%d,%d %%", whole, frac/10)
	default:
		return fmt.Sprintf("%d,%02d %%", whole, frac)
	}
}
