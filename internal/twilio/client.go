package twilio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotConfigured is returned when the sender or recipient number is missing.
var ErrNotConfigured = errors.New("twilio whatsapp channel not configured")

// messageCreator is the part of the Twilio REST API the notifier uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Notifier delivers reminder digests to one WhatsApp recipient.
type Notifier struct {
	api          messageCreator
	fromWhatsApp string
	toWhatsApp   string
	logger       *log.Logger
}

// New creates a notifier bound to the configured sender and recipient numbers.
func New(accountSID, authToken, fromWhatsApp, toWhatsApp string, logger *log.Logger) *Notifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	return &Notifier{
		api:          client.Api,
		fromWhatsApp: fromWhatsApp,
		toWhatsApp:   toWhatsApp,
		logger:       logger,
	}
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string {
	return "whatsapp"
}

// Notify sends text as a WhatsApp message. The Twilio SDK offers no context
// support, so ctx is only checked before the call.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.api == nil {
		return ErrNotConfigured
	}

	sender := normalizeWhatsAppAddress(n.fromWhatsApp)
	recipient := normalizeWhatsAppAddress(n.toWhatsApp)
	if sender == "" || recipient == "" {
		return ErrNotConfigured
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(text)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		n.logger.Printf("twilio: digest sent to %s, SID %s", recipient, *resp.Sid)
	}
	return nil
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
