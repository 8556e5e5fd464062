package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/team-tickets/ticket"
	"github.com/Rhymond/go-money"
)

//go:embed templates
var templates embed.FS

const ticketEmailSubject = "Your Event QR Code"

// EntryFee is shown on the ticket when set. Amount is in the currency's minor unit.
type EntryFee struct {
	Amount   int64
	Currency string
}

func (f EntryFee) display() string {
	if f.Amount <= 0 || f.Currency == "" {
		return ""
	}
	return money.New(f.Amount, f.Currency).Display()
}

func SendTicketEmail(ctx context.Context, emailSender email.Sender, fromAddress string, fee EntryFee, reg Registration, tkt ticket.Ticket) error {
	htmlBody, err := makeTicketHtmlBody(reg, tkt, fee)
	if err != nil {
		return err
	}

	textOnlyBody, err := makeTicketTextOnlyBody(reg, tkt, fee)
	if err != nil {
		return err
	}

	return emailSender.SendEmail(ctx, email.Email{
		FromAddress: fromAddress,
		ToAddresses: []string{reg.Leader.Email},
		Subject:     ticketEmailSubject,
		HTMLBody:    htmlBody,
		TextBody:    textOnlyBody,
	})
}

func makeTicketHtmlBody(reg Registration, tkt ticket.Ticket, fee EntryFee) (string, error) {
	tmpl, err := htmltemplate.ParseFS(templates, "templates/ticket.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Registration": reg,
		// data: URLs are filtered by html/template unless marked safe.
		"QRCode":   htmltemplate.URL(tkt.DataURL()),
		"ScanURL":  tkt.ScanURL,
		"EntryFee": fee.display(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

func makeTicketTextOnlyBody(reg Registration, tkt ticket.Ticket, fee EntryFee) (string, error) {
	tmpl, err := texttemplate.New("ticket-textonly.tmpl").Funcs(texttemplate.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).ParseFS(templates, "templates/ticket-textonly.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Registration": reg,
		"ScanURL":      tkt.ScanURL,
		"EntryFee":     fee.display(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}
