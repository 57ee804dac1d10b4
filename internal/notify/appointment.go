package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// SMSSender sends SMS messages to clinic staff.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// AppointmentNotifier tells the clinic about every finalized appointment by
// email and, when configured, by SMS.
type AppointmentNotifier struct {
	clinicName string
	email      EmailSender
	emailTo    []string
	sms        SMSSender
	smsTo      []string
	logger     *logging.Logger
}

// AppointmentNotifierConfig lists where notifications go. Empty recipient
// lists disable that channel.
type AppointmentNotifierConfig struct {
	ClinicName      string
	EmailRecipients []string
	SMSRecipients   []string
}

// NewAppointmentNotifier builds a notifier. Either sender may be nil.
func NewAppointmentNotifier(cfg AppointmentNotifierConfig, email EmailSender, sms SMSSender, logger *logging.Logger) *AppointmentNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{
		clinicName: cfg.ClinicName,
		email:      email,
		emailTo:    splitRecipients(cfg.EmailRecipients),
		sms:        sms,
		smsTo:      splitRecipients(cfg.SMSRecipients),
		logger:     logger,
	}
}

// NotifyAppointment sends one message per recipient. Every recipient is
// tried; failures are joined into the returned error.
func (n *AppointmentNotifier) NotifyAppointment(ctx context.Context, appt store.Appointment) error {
	var errs []error

	if n.email != nil && len(n.emailTo) > 0 {
		for _, recipient := range n.emailTo {
			if err := n.email.Send(ctx, AppointmentEmail(n.clinicName, appt, recipient)); err != nil {
				n.logger.Error("notify: failed to send appointment email", "error", err, "to", recipient, "appointment_id", appt.ID)
				errs = append(errs, err)
				continue
			}
			n.logger.Info("notify: appointment email sent", "to", recipient, "appointment_id", appt.ID)
		}
	}

	if n.sms != nil && len(n.smsTo) > 0 {
		body := fmt.Sprintf("Novo agendamento: %s em %s às %s. Tel: %s", appt.Name, appt.Date, appt.Time, orDash(appt.Phone))
		for _, recipient := range n.smsTo {
			if err := n.sms.SendSMS(ctx, recipient, body); err != nil {
				n.logger.Error("notify: failed to send appointment SMS", "error", err, "to", recipient, "appointment_id", appt.ID)
				errs = append(errs, err)
				continue
			}
			n.logger.Info("notify: appointment SMS sent", "to", recipient, "appointment_id", appt.ID)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// splitRecipients accepts entries that are themselves comma separated, as
// they come from a single environment variable.
func splitRecipients(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SimpleSMSSender adapts a send function (for example a Twilio sender) to
// SMSSender.
type SimpleSMSSender struct {
	sendFunc func(ctx context.Context, to, body string) error
	logger   *logging.Logger
}

// NewSimpleSMSSender creates an SMS sender with a custom send function.
func NewSimpleSMSSender(sendFunc func(ctx context.Context, to, body string) error, logger *logging.Logger) *SimpleSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SimpleSMSSender{sendFunc: sendFunc, logger: logger}
}

// SendSMS sends an SMS message.
func (s *SimpleSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if s.sendFunc == nil {
		s.logger.Warn("notify: SMS sender not configured")
		return nil
	}
	return s.sendFunc(ctx, to, body)
}

var _ SMSSender = (*SimpleSMSSender)(nil)
