package mailbox

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const noContent = "No content"

type parsedMessage struct {
	text       string
	html       string
	references string
	date       time.Time
}

// body prefers the plain text part and falls back to stripped HTML.
func (p parsedMessage) body() string {
	if strings.TrimSpace(p.text) != "" {
		return p.text
	}
	if html := stripHTML(p.html); html != "" {
		return html
	}
	return noContent
}

// parseMessage parses a raw RFC 5322 message with go-message. Messages that
// cannot be parsed are treated as plain text.
func parseMessage(raw []byte) parsedMessage {
	if len(raw) == 0 {
		return parsedMessage{}
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return parsedMessage{text: string(raw)}
	}
	defer mr.Close()

	parsed := parsedMessage{references: mr.Header.Get("References")}
	if date, err := mr.Header.Date(); err == nil {
		parsed.date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && parsed.text == "":
			parsed.text = string(body)
		case strings.HasPrefix(contentType, "text/html") && parsed.html == "":
			parsed.html = string(body)
		}
	}

	return parsed
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes tags and decodes common entities.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>"} {
		result = strings.ReplaceAll(result, tag, "\n")
	}
	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
