package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers appointment emails through Amazon SES v2.
type SESSender struct {
	api    sesAPI
	from   mailbox
	logger *logging.Logger
}

// SESConfig is the verified SES identity mail is sent from.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// NewSESSender returns nil for a nil client.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return newSESSender(client, cfg, logger)
}

func newSESSender(api sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{api: api, from: newMailbox(cfg.FromName, cfg.FromEmail), logger: logger}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.api == nil {
		return fmt.Errorf("notify: ses client not configured")
	}
	out, err := s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          &types.EmailContent{Simple: sesMessage(msg)},
	})
	if err != nil {
		return fmt.Errorf("notify: ses appointment %d: %w", msg.AppointmentID, err)
	}
	s.logger.Debug("appointment email accepted by ses", "to", msg.To, "appointment_id", msg.AppointmentID, "message_id", aws.ToString(out.MessageId))
	return nil
}

// sesMessage leaves out empty parts; SES rejects a body part with no data.
func sesMessage(msg EmailMessage) *types.Message {
	utf8 := func(s string) *types.Content {
		if s == "" {
			return nil
		}
		return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
	}
	return &types.Message{
		Subject: utf8(msg.Subject),
		Body:    &types.Body{Text: utf8(msg.Text), Html: utf8(msg.HTML)},
	}
}

var _ EmailSender = (*SESSender)(nil)
