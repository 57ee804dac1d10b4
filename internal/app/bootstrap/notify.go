package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildTwilioSender returns nil unless account SID and auth token are set.
func BuildTwilioSender(cfg *appconfig.Config, logger *logging.Logger) *messaging.TwilioSender {
	if cfg == nil || strings.TrimSpace(cfg.TwilioAccountSID) == "" || strings.TrimSpace(cfg.TwilioAuthToken) == "" {
		return nil
	}
	return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
}

// BuildEmailSender picks SendGrid, then SES, then the logging stub.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	if strings.TrimSpace(cfg.SESFromEmail) != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("ses disabled", "error", err)
		} else {
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
	}
	return notify.NewStubEmailSender(logger)
}

// BuildNotifier returns nil when no clinic recipient is configured. sms may
// be nil, in which case NOTIFY_SMS is ignored.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, info clinic.Info, sms notify.SMSSender, logger *logging.Logger) *notify.AppointmentNotifier {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(cfg.NotifyEmail) == "" && (sms == nil || strings.TrimSpace(cfg.NotifySMS) == "") {
		return nil
	}
	var email notify.EmailSender
	if strings.TrimSpace(cfg.NotifyEmail) != "" {
		email = BuildEmailSender(ctx, cfg, logger)
	}
	var smsRecipients []string
	if sms != nil {
		smsRecipients = []string{cfg.NotifySMS}
	}
	return notify.NewAppointmentNotifier(notify.AppointmentNotifierConfig{
		ClinicName:      info.Name,
		EmailRecipients: []string{cfg.NotifyEmail},
		SMSRecipients:   smsRecipients,
	}, email, sms, logger)
}
