package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"llouest/internal/model"
)

// Brand is the sender identity printed in every email.
type Brand struct {
	Name         string
	PublicURL    string
	ContactEmail string
}

// Templates renders the transactional emails. Dates are shown in loc.
type Templates struct {
	brand Brand
	loc   *time.Location
}

func NewTemplates(brand Brand, loc *time.Location) *Templates {
	if loc == nil {
		loc = time.UTC
	}
	return &Templates{brand: brand, loc: loc}
}

type codeCopy struct {
	subject string
	intro   string
}

var codeCopies = map[model.ChallengePurpose]codeCopy{
	model.PurposeSignup: {
		subject: "Vérifiez votre adresse e-mail",
		intro:   "Merci pour votre inscription. Voici votre code de vérification :",
	},
	model.PurposePasswordReset: {
		subject: "Réinitialisation de votre mot de passe",
		intro:   "Vous avez demandé à réinitialiser votre mot de passe. Voici votre code :",
	},
	model.PurposeEmailChange: {
		subject: "Confirmez votre nouvelle adresse e-mail",
		intro:   "Pour confirmer le changement de votre adresse e-mail, saisissez ce code :",
	},
}

// Code renders the verification code email for a challenge purpose.
func (t *Templates) Code(purpose model.ChallengePurpose, to, code string, ttl time.Duration) Email {
	cp, ok := codeCopies[purpose]
	if !ok {
		cp = codeCopies[model.PurposeSignup]
	}
	link := t.link(purpose.RedirectPath(), url.Values{"email": {to}})
	expires := fmt.Sprintf("%d minutes", int(ttl.Minutes()))

	var text bytes.Buffer
	fmt.Fprintf(&text, "%s\n\n%s\n\n", cp.intro, code)
	fmt.Fprintf(&text, "Saisissez-le ici : %s\n\n", link)
	fmt.Fprintf(&text, "Ce code expire dans %s.\n", expires)
	text.WriteString("Si vous n'êtes pas à l'origine de cette demande, ignorez cet e-mail.\n")

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s - %s", cp.subject, t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("code", map[string]any{
			"Intro":   cp.intro,
			"Code":    code,
			"Link":    link,
			"Expires": expires,
		}),
	}
}

func (t *Templates) Welcome(u *model.User) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", u.Name)
	fmt.Fprintf(&text, "Votre compte %s est activé. Vous pouvez dès maintenant réserver nos services.\n\n", t.brand.Name)
	fmt.Fprintf(&text, "%s\n", t.link("/", nil))
	return Email{
		To:       u.Email,
		ToName:   u.Name,
		Subject:  fmt.Sprintf("Bienvenue chez %s", t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("welcome", map[string]any{"Name": u.Name, "Link": t.link("/", nil)}),
	}
}

func (t *Templates) ReservationConfirmation(r *model.Reservation) Email {
	date := t.date(r.Date)
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", r.FirstName)
	fmt.Fprintf(&text, "Nous avons bien reçu votre demande de réservation pour « %s » le %s.\n", r.ServiceName, date)
	text.WriteString("Nous revenons vers vous très rapidement pour la confirmer.\n\n")
	fmt.Fprintf(&text, "Référence : %s\n", r.ID)
	return Email{
		To:       r.Email,
		ToName:   r.ClientName(),
		Subject:  fmt.Sprintf("Votre demande de réservation - %s", t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("reservation_confirmation", map[string]any{
			"Name":    r.FirstName,
			"Service": r.ServiceName,
			"Date":    date,
			"Ref":     r.ID,
		}),
	}
}

func (t *Templates) ReservationReply(r *model.Reservation) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", r.FirstName)
	fmt.Fprintf(&text, "Réponse concernant votre réservation « %s » du %s :\n\n", r.ServiceName, t.date(r.Date))
	fmt.Fprintf(&text, "%s\n", r.Reply)
	return Email{
		To:       r.Email,
		ToName:   r.ClientName(),
		Subject:  fmt.Sprintf("Réponse à votre réservation - %s", t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("reservation_reply", map[string]any{
			"Name":    r.FirstName,
			"Service": r.ServiceName,
			"Date":    t.date(r.Date),
			"Reply":   paragraphs(r.Reply),
		}),
	}
}

func (t *Templates) ContactAcknowledgement(m *model.ContactMessage) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", m.Name)
	fmt.Fprintf(&text, "Nous avons bien reçu votre message « %s » et vous répondrons rapidement.\n", m.Subject)
	return Email{
		To:       m.Email,
		ToName:   m.Name,
		Subject:  fmt.Sprintf("Nous avons bien reçu votre message - %s", t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("contact_ack", map[string]any{"Name": m.Name, "Subject": m.Subject}),
	}
}

func (t *Templates) ContactReply(m *model.ContactMessage) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n%s\n\n", m.Name, m.Reply)
	text.WriteString("---\nVotre message :\n")
	text.WriteString(m.Message + "\n")
	subject := m.Subject
	if subject == "" {
		subject = "Votre message"
	}
	return Email{
		To:       m.Email,
		ToName:   m.Name,
		Subject:  "Re: " + subject,
		TextBody: text.String(),
		HTMLBody: t.render("contact_reply", map[string]any{
			"Name":     m.Name,
			"Reply":    paragraphs(m.Reply),
			"Original": paragraphs(m.Message),
		}),
	}
}

// InvoiceIssued attaches the rendered PDF.
func (t *Templates) InvoiceIssued(u *model.User, inv *model.Invoice, pdf []byte) Email {
	total := model.FormatEuros(inv.TotalCents)
	due := t.day(inv.DueAt)
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", u.Name)
	fmt.Fprintf(&text, "Veuillez trouver ci-joint la facture %s d'un montant de %s TTC, payable avant le %s.\n", inv.Number, total, due)
	return Email{
		To:       u.Email,
		ToName:   u.Name,
		Subject:  fmt.Sprintf("Facture %s - %s", inv.Number, t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("invoice", map[string]any{
			"Name":   u.Name,
			"Number": inv.Number,
			"Total":  total,
			"Due":    due,
		}),
		Attachments: []Attachment{{
			Filename:    inv.Number + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
}

// EmailChanged goes to the previous address so a hijack can be noticed.
func (t *Templates) EmailChanged(name, oldEmail, newEmail string) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Bonjour %s,\n\n", name)
	fmt.Fprintf(&text, "L'adresse e-mail de votre compte a été remplacée par %s.\n", newEmail)
	fmt.Fprintf(&text, "Si vous n'êtes pas à l'origine de ce changement, contactez-nous : %s\n", t.brand.ContactEmail)
	return Email{
		To:       oldEmail,
		ToName:   name,
		Subject:  fmt.Sprintf("Votre adresse e-mail a été modifiée - %s", t.brand.Name),
		TextBody: text.String(),
		HTMLBody: t.render("email_changed", map[string]any{
			"Name":     name,
			"NewEmail": newEmail,
			"Contact":  t.brand.ContactEmail,
		}),
	}
}

func (t *Templates) link(path string, q url.Values) string {
	u := strings.TrimRight(t.brand.PublicURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (t *Templates) date(ts time.Time) string {
	return ts.In(t.loc).Format("02/01/2006 à 15h04")
}

func (t *Templates) day(ts time.Time) string {
	return ts.In(t.loc).Format("02/01/2006")
}

func (t *Templates) render(name string, data map[string]any) string {
	tmpl, ok := htmlTemplates[name]
	if !ok {
		return ""
	}
	data["Brand"] = t.brand
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return ""
	}
	return buf.String()
}

// paragraphs splits free text on blank lines so the HTML body keeps the author's breaks.
func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var htmlTemplates = func() map[string]*template.Template {
	layout := template.Must(template.New("layout").Parse(layoutHTML))
	out := make(map[string]*template.Template, len(contentHTML))
	for name, body := range contentHTML {
		t := template.Must(layout.Clone())
		out[name] = template.Must(t.Parse(`{{define "content"}}` + body + `{{end}}`))
	}
	return out
}()

const layoutHTML = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Brand.Name}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, Helvetica, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; color: #0f766e;">{{.Brand.Name}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px; font-size: 15px; color: #374151; line-height: 1.5;">
              {{template "content" .}}
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                {{.Brand.Name}} · <a href="mailto:{{.Brand.ContactEmail}}" style="color: #9ca3af;">{{.Brand.ContactEmail}}</a>
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var contentHTML = map[string]string{
	"code": `
<p style="margin: 0 0 24px;">{{.Intro}}</p>
<div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
  <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
</div>
<p style="margin: 0 0 24px; text-align: center;">
  <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">Saisir le code</a>
</p>
<p style="margin: 0; font-size: 13px; color: #9ca3af; text-align: center;">Ce code expire dans {{.Expires}}. Si vous n'êtes pas à l'origine de cette demande, ignorez cet e-mail.</p>`,

	"welcome": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0 0 24px;">Votre compte {{.Brand.Name}} est activé. Vous pouvez dès maintenant réserver nos services.</p>
<p style="margin: 0; text-align: center;">
  <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">Découvrir nos services</a>
</p>`,

	"reservation_confirmation": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0 0 16px;">Nous avons bien reçu votre demande de réservation pour <strong>{{.Service}}</strong> le <strong>{{.Date}}</strong>.</p>
<p style="margin: 0 0 16px;">Nous revenons vers vous très rapidement pour la confirmer.</p>
<p style="margin: 0; font-size: 13px; color: #6b7280;">Référence : {{.Ref}}</p>`,

	"reservation_reply": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0 0 16px;">Réponse concernant votre réservation <strong>{{.Service}}</strong> du {{.Date}} :</p>
{{range .Reply}}<p style="margin: 0 0 12px;">{{.}}</p>{{end}}`,

	"contact_ack": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0;">Nous avons bien reçu votre message{{if .Subject}} « {{.Subject}} »{{end}} et vous répondrons rapidement.</p>`,

	"contact_reply": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
{{range .Reply}}<p style="margin: 0 0 12px;">{{.}}</p>{{end}}
<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">
<p style="margin: 0 0 8px; font-size: 13px; color: #6b7280;">Votre message :</p>
{{range .Original}}<p style="margin: 0 0 8px; font-size: 13px; color: #6b7280;">{{.}}</p>{{end}}`,

	"invoice": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0 0 16px;">Veuillez trouver ci-joint la facture <strong>{{.Number}}</strong> d'un montant de <strong>{{.Total}} TTC</strong>.</p>
<p style="margin: 0;">Date d'échéance : {{.Due}}</p>`,

	"email_changed": `
<p style="margin: 0 0 16px;">Bonjour {{.Name}},</p>
<p style="margin: 0 0 16px;">L'adresse e-mail de votre compte a été remplacée par <strong>{{.NewEmail}}</strong>.</p>
<p style="margin: 0;">Si vous n'êtes pas à l'origine de ce changement, contactez-nous à <a href="mailto:{{.Contact}}">{{.Contact}}</a>.</p>`,
}
