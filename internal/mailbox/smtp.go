package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// ErrNoRecipient is returned when a message has no usable To address.
var ErrNoRecipient = errors.New("recipient address required")

// Message is an outgoing plain-text email. InReplyTo and References carry
// the threading headers of the message being answered.
type Message struct {
	To         string
	Subject    string
	Body       string
	InReplyTo  string
	References string
}

// Sender submits mail through an authenticated SMTP relay.
type Sender struct {
	host     string
	port     int
	username string
	password string
	tls      bool
	now      func() time.Time
	send     func(addr string, a sasl.Client, from string, to []string, msg []byte) error
}

// NewSender creates a sender. With tls set the connection is implicit TLS,
// otherwise STARTTLS is negotiated when the server offers it.
func NewSender(host string, port int, username, password string, tls bool) *Sender {
	s := &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
		now:      time.Now,
	}
	s.send = func(addr string, a sasl.Client, from string, to []string, msg []byte) error {
		if s.tls {
			return smtp.SendMailTLS(addr, a, from, to, bytes.NewReader(msg))
		}
		return smtp.SendMail(addr, a, from, to, bytes.NewReader(msg))
	}
	return s
}

// Send composes and submits msg from the configured account.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to, err := mail.ParseAddress(strings.TrimSpace(msg.To))
	if err != nil || to.Address == "" {
		return fmt.Errorf("%w: %q", ErrNoRecipient, msg.To)
	}

	raw, err := compose(s.username, to, msg, s.now())
	if err != nil {
		return err
	}

	addr := s.host + ":" + strconv.Itoa(s.port)
	auth := sasl.NewPlainClient("", s.username, s.password)
	if err := s.send(addr, auth, s.username, []string{to.Address}, raw); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	return nil
}

func compose(from string, to *mail.Address, msg Message, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	h.SetMessageID(uuid.NewString() + "@" + domainOf(from))
	if ids := msgIDs(msg.InReplyTo); len(ids) > 0 {
		h.SetMsgIDList("In-Reply-To", ids[:1])
	}
	if ids := msgIDs(msg.References); len(ids) > 0 {
		h.SetMsgIDList("References", ids)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("composing message: %w", err)
	}
	if _, err := w.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing message: %w", err)
	}
	return buf.Bytes(), nil
}

// msgIDs splits a header value into bare message identifiers.
func msgIDs(value string) []string {
	var ids []string
	for _, field := range strings.Fields(value) {
		id := strings.Trim(field, "<>,")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "localhost"
}
