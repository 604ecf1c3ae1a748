// Package mailbox reads the inbox over IMAP and sends mail over SMTP.
package mailbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/pathakanu/inboxpilot/internal/model"
)

const flagForwarded = "$Forwarded"

// Reader fetches recent messages from one IMAP folder.
type Reader struct {
	host     string
	port     int
	username string
	password string
	tls      bool
	folder   string
}

// NewReader creates a reader. An empty folder means INBOX.
func NewReader(host string, port int, username, password string, tls bool, folder string) *Reader {
	if folder == "" {
		folder = "INBOX"
	}
	return &Reader{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
		folder:   folder,
	}
}

// connect dials and authenticates. The connection is closed when ctx ends so
// a stuck server cannot block the caller forever.
func (r *Reader) connect(ctx context.Context) (*imapclient.Client, func(), error) {
	addr := r.host + ":" + strconv.Itoa(r.port)

	var client *imapclient.Client
	var err error
	if r.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	release := func() {
		stop()
		_ = client.Logout().Wait()
	}

	if err := client.Login(r.username, r.password).Wait(); err != nil {
		release()
		return nil, nil, fmt.Errorf("IMAP login for %s: %w", r.username, err)
	}
	return client, release, nil
}

// Fetch returns up to limit of the newest messages, most recent first.
// Bodies are fetched with PEEK so reading never marks mail as seen.
func (r *Reader) Fetch(ctx context.Context, limit int) ([]model.Email, error) {
	client, release, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := client.Select(r.folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", r.folder, err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", r.folder, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []model.Email
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		emails = append(emails, emailFromBuffer(buf, buf.FindBodySection(bodySection)))
	}

	if err := fetchCmd.Close(); err != nil {
		return emails, fmt.Errorf("fetching messages: %w", err)
	}

	sort.Slice(emails, func(i, j int) bool {
		return emails[i].UID > emails[j].UID
	})
	return emails, nil
}

func emailFromBuffer(buf *imapclient.FetchMessageBuffer, raw []byte) model.Email {
	email := model.Email{
		UID:     uint32(buf.UID),
		Subject: "No Subject",
		From:    "Unknown Sender",
	}

	if env := buf.Envelope; env != nil {
		email.MessageID = env.MessageID
		email.Date = env.Date
		if env.Subject != "" {
			email.Subject = env.Subject
		}
		if len(env.From) > 0 {
			from := env.From[0]
			email.FromAddr = from.Addr()
			if from.Name != "" {
				email.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else if addr := from.Addr(); addr != "" {
				email.From = addr
			}
		}
	}

	for _, flag := range buf.Flags {
		email.Flags = append(email.Flags, string(flag))
	}
	email.Read = isRead(buf.Flags)

	parsed := parseMessage(raw)
	email.Body = parsed.body()
	email.References = parsed.references
	if email.Date.IsZero() {
		email.Date = parsed.date
	}
	return email
}

// isRead treats answered or forwarded mail as read even when \Seen is
// missing; some servers only set those flags.
func isRead(flags []imap.Flag) bool {
	for _, flag := range flags {
		switch flag {
		case imap.FlagSeen, imap.FlagAnswered, flagForwarded:
			return true
		}
	}
	return false
}
