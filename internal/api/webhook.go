package api

import (
	"net/http"
	"net/url"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"

	"github.com/pathakanu/inboxpilot/internal/assistant"
)

// Option configures optional routes.
type Option func(*Server, *http.ServeMux)

// WithWhatsAppWebhook registers POST /twilio/webhook so the digest recipient
// can chat with the assistant over WhatsApp. Requests must carry a valid
// X-Twilio-Signature for authToken, computed over publicURL (or the request
// URL when publicURL is empty). Messages from other numbers are refused.
func WithWhatsAppWebhook(allowedFrom, authToken, publicURL string) Option {
	return func(s *Server, mux *http.ServeMux) {
		s.whatsApp = &whatsAppWebhook{
			allowedFrom: sanitizeWhatsAppNumber(allowedFrom),
			authToken:   authToken,
			publicURL:   strings.TrimSpace(publicURL),
			validator:   twilioclient.NewRequestValidator(authToken),
		}
		mux.HandleFunc("POST /twilio/webhook", s.handleWhatsApp)
	}
}

type whatsAppWebhook struct {
	allowedFrom string
	authToken   string
	publicURL   string
	validator   twilioclient.RequestValidator
}

func (h *whatsAppWebhook) verify(r *http.Request, form map[string]string) bool {
	if h.authToken == "" {
		return false
	}
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	target := h.publicURL
	if target == "" {
		target = requestURL(r)
	}
	return h.validator.Validate(target, form, signature)
}

func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.Printf("webhook: parse error: %v", err)
		s.writeTwiML(w, "Sorry, I couldn't understand that request.")
		return
	}

	form := decodeTwilioForm(r.PostForm)
	if !s.whatsApp.verify(r, form) {
		s.logger.Printf("webhook: rejecting request with missing or invalid signature")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	from := sanitizeWhatsAppNumber(form["From"])
	body := strings.TrimSpace(form["Body"])
	if s.whatsApp.allowedFrom != "" && from != s.whatsApp.allowedFrom {
		s.logger.Printf("webhook: ignoring message from %s", from)
		s.writeTwiML(w, "Sorry, this assistant only answers its owner.")
		return
	}
	if body == "" {
		s.writeTwiML(w, "I need a message to work with. Please try again.")
		return
	}

	lower := strings.ToLower(body)
	switch {
	case lower == "help":
		s.writeTwiML(w, helpResponse())
	case isListRequest(lower):
		pending := s.assistant.PendingReminders()
		if len(pending) == 0 {
			s.writeTwiML(w, "You have no pending reminders.")
			return
		}
		s.writeTwiML(w, assistant.FormatDigest(pending))
	default:
		response, _ := s.assistant.GeneralChat(r.Context(), body)
		s.writeTwiML(w, response)
	}
}

func (s *Server) writeTwiML(w http.ResponseWriter, message string) {
	doc, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: message}})
	if err != nil {
		s.logger.Printf("webhook: encode twiml: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(doc))
}

func isListRequest(body string) bool {
	return strings.Contains(body, "show my reminders") ||
		strings.Contains(body, "list my reminders") ||
		strings.Contains(body, "show reminders") ||
		strings.Contains(body, "list reminders") ||
		(strings.Contains(body, "list") && strings.Contains(body, "reminder"))
}

func helpResponse() string {
	return "You can say things like:\n- \"List reminders\" to see what is pending\n- \"How many emails are unread?\" for mailbox stats\n- Any question about your inbox"
}

// requestURL rebuilds the URL Twilio called, honouring a TLS-terminating
// proxy's X-Forwarded-Proto.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// sanitizeWhatsAppNumber strips the channel prefix Twilio adds to numbers.
func sanitizeWhatsAppNumber(from string) string {
	from = strings.TrimSpace(from)
	from = strings.TrimPrefix(from, "whatsapp:")
	return strings.TrimPrefix(from, "+")
}

// decodeTwilioForm flattens the POST form to its first values.
func decodeTwilioForm(values url.Values) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if len(value) > 0 {
			result[key] = value[0]
		}
	}
	return result
}
