package twilio

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeAPI struct {
	params []*openapi.CreateMessageParams
	err    error
}

func (f *fakeAPI) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestNormalizeWhatsAppAddress(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                   "",
		"  ":                 "",
		"whatsapp:+15551234": "whatsapp:+15551234",
		"+15551234":          "whatsapp:+15551234",
		"15551234":           "whatsapp:+15551234",
	}
	for input, want := range cases {
		if got := normalizeWhatsAppAddress(input); got != want {
			t.Fatalf("normalizeWhatsAppAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNotify(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	n := &Notifier{api: api, fromWhatsApp: "+1000", toWhatsApp: "2000", logger: log.New(io.Discard, "", 0)}

	if err := n.Notify(context.Background(), "2 reminders pending"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(api.params) != 1 {
		t.Fatalf("expected one message, got %d", len(api.params))
	}
	p := api.params[0]
	if *p.To != "whatsapp:+2000" || *p.From != "whatsapp:+1000" || *p.Body != "2 reminders pending" {
		t.Fatalf("unexpected params: to=%s from=%s body=%s", *p.To, *p.From, *p.Body)
	}
}

func TestNotifyErrors(t *testing.T) {
	t.Parallel()

	n := &Notifier{api: &fakeAPI{}, fromWhatsApp: "+1000", logger: log.New(io.Discard, "", 0)}
	if err := n.Notify(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	failing := &Notifier{api: &fakeAPI{err: errors.New("boom")}, fromWhatsApp: "+1", toWhatsApp: "+2", logger: log.New(io.Discard, "", 0)}
	if err := failing.Notify(context.Background(), "x"); err == nil {
		t.Fatalf("expected API error")
	}
}
