package webhook

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"nochex-be/internal/logger"
	"nochex-be/internal/payment"
	"nochex-be/internal/transport"

	"go.uber.org/zap"
)

// Receiver turns an inbound form post into a payment.Notification.
type Receiver struct {
	settings payment.Settings
	audit    payment.Warner
}

func NewReceiver(settings payment.Settings, audit payment.Warner) *Receiver {
	return &Receiver{settings: settings, audit: audit}
}

// Receive classifies the channel and extracts the order reference and the
// order token. Notifications lacking either are malformed.
func (r *Receiver) Receive(ctx context.Context, in *transport.Inbound) (*payment.Notification, error) {
	fields := in.Fields

	channel := payment.ChannelAPC
	if fields.Get(payment.FieldOptional2) == payment.CallbackEnabledFlag {
		channel = payment.ChannelCallback
	}

	token := strings.TrimSpace(fields.Get(payment.FieldOptional1))
	if token == "" {
		// orders created before optional_1 was introduced carry the id here
		token = strings.TrimSpace(fields.Get(payment.FieldCustom))
	}

	n := &payment.Notification{
		Channel:           channel,
		RemoteIP:          in.RemoteIP,
		Fields:            fields,
		OrderRef:          strings.TrimSpace(fields.Get(payment.FieldOrderID)),
		Token:             token,
		TransactionID:     fields.Get(payment.FieldTransactionID),
		TransactionStatus: fields.Get(payment.FieldTransactionStatus),
		Status:            fields.Get(payment.FieldStatus),
		ReceivedAt:        in.ReceivedAt,
	}

	if r.settings.DebugMode && r.audit != nil {
		r.audit.Warn(fmt.Sprintf("%s: %s notification for order %q, transaction %q",
			channel.LogTag(), channel, n.OrderRef, n.TransactionID))
	}

	var missing []string
	if n.OrderRef == "" {
		missing = append(missing, payment.FieldOrderID)
	}
	if n.Token == "" {
		missing = append(missing, payment.FieldOptional1)
	}
	if len(missing) > 0 {
		logger.FromCtx(ctx).Warn("malformed nochex notification",
			zap.String("channel", channel.String()),
			zap.Strings("missing", missing),
			zap.String("ip", in.RemoteIP),
		)
		return nil, fmt.Errorf("%w: missing %s", payment.ErrMalformedNotification, strings.Join(missing, ", "))
	}

	for name, value := range map[string]string{
		payment.FieldOrderID:   n.OrderRef,
		payment.FieldOptional1: n.Token,
	} {
		if !storableText(value) {
			logger.FromCtx(ctx).Warn("malformed nochex notification",
				zap.String("channel", channel.String()),
				zap.String("invalid", name),
				zap.String("ip", in.RemoteIP),
			)
			return nil, fmt.Errorf("%w: %s is not valid text", payment.ErrMalformedNotification, name)
		}
	}

	return n, nil
}

// storableText rejects values a text column cannot hold.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
