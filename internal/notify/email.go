package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// DefaultFromName is used when no sender name is configured.
const DefaultFromName = "Assistente de Agendamento"

// EmailSender delivers one appointment email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a rendered appointment email for a single staff recipient.
type EmailMessage struct {
	To            string
	Subject       string
	Text          string
	HTML          string
	AppointmentID int64
}

// AppointmentEmail renders the staff notice for a finalized appointment.
func AppointmentEmail(clinicName string, appt store.Appointment, to string) EmailMessage {
	return EmailMessage{
		To:            to,
		Subject:       "Novo agendamento - " + appt.Name,
		Text:          appointmentText(clinicName, appt),
		HTML:          appointmentHTML(clinicName, appt),
		AppointmentID: appt.ID,
	}
}

func appointmentText(clinicName string, appt store.Appointment) string {
	return fmt.Sprintf(`Um novo agendamento foi confirmado pelo assistente.

Paciente: %s
Email: %s
Telefone: %s
Data: %s
Hora: %s
Código: %d

%s`, appt.Name, orDash(appt.Email), orDash(appt.Phone), appt.Date, appt.Time, appt.ID, clinicName)
}

func appointmentHTML(clinicName string, appt store.Appointment) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	b.WriteString(`<h2>Novo agendamento</h2><table style="border-collapse: collapse;">`)
	for _, r := range [][2]string{
		{"Paciente", appt.Name},
		{"Email", orDash(appt.Email)},
		{"Telefone", orDash(appt.Phone)},
		{"Data", appt.Date},
		{"Hora", appt.Time},
	} {
		fmt.Fprintf(&b, `<tr><td style="padding: 8px;"><strong>%s:</strong></td><td style="padding: 8px;">%s</td></tr>`, r[0], html.EscapeString(r[1]))
	}
	b.WriteString(`</table>`)
	fmt.Fprintf(&b, `<p style="color: #6b7280; font-size: 12px;">%s</p></div>`, html.EscapeString(clinicName))
	return b.String()
}

// mailbox is the clinic's From identity, shared by every transport.
type mailbox struct {
	name    string
	address string
}

func newMailbox(name, address string) mailbox {
	if strings.TrimSpace(name) == "" {
		name = DefaultFromName
	}
	return mailbox{name: name, address: address}
}

func (m mailbox) String() string {
	return fmt.Sprintf("%s <%s>", m.name, m.address)
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers appointment emails through the SendGrid v3 API.
type SendGridSender struct {
	api    sendgridAPI
	from   mailbox
	logger *logging.Logger
}

// SendGridConfig holds the SendGrid key and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), newMailbox(cfg.FromName, cfg.FromEmail), logger)
}

func newSendGridSender(api sendgridAPI, from mailbox, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{api: api, from: from, logger: logger}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.api == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = msg.Text
	}
	body := mail.NewSingleEmail(
		mail.NewEmail(s.from.name, s.from.address),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		htmlBody,
	)
	resp, err := s.api.SendWithContext(ctx, body)
	if err != nil {
		return fmt.Errorf("notify: sendgrid appointment %d: %w", msg.AppointmentID, err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Warn("sendgrid rejected appointment email", "status", resp.StatusCode, "body", resp.Body, "appointment_id", msg.AppointmentID)
		return fmt.Errorf("notify: sendgrid appointment %d: status %d", msg.AppointmentID, resp.StatusCode)
	}
	s.logger.Debug("appointment email accepted by sendgrid", "to", msg.To, "appointment_id", msg.AppointmentID)
	return nil
}

// StubEmailSender only logs. It stands in when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("appointment email not sent: no email provider", "to", msg.To, "appointment_id", msg.AppointmentID)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
