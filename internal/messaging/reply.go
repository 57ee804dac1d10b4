package messaging

import "context"

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// OutboundReply is one assistant message to deliver to a user.
type OutboundReply struct {
	To       string
	From     string
	Body     string
	Metadata map[string]string
}

// ReplyMessenger delivers assistant replies out of band.
type ReplyMessenger interface {
	SendReply(ctx context.Context, msg OutboundReply) error
}
