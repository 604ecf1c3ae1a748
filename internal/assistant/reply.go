package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathakanu/inboxpilot/internal/conversation"
	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/mailbox"
	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/textutil"
)

// Tones accepted by GenerateReply. Anything else is treated as professional.
var Tones = []string{"professional", "casual", "friendly", "formal"}

const emailChatFailure = "I apologize, but I'm having trouble processing your request. Please try again."

var greetings = []string{"Dear", "Hello", "Hi", "Thank you", "Thanks"}

// GenerateReply drafts a reply to the email at index in the given tone.
func (a *Assistant) GenerateReply(ctx context.Context, index int, tone string) (string, error) {
	email, err := a.email(index)
	if err != nil {
		return "", err
	}
	tone = normalizeTone(tone)

	response, err := a.gen.Generate(ctx, replyPrompt(email, tone), 300)
	if err != nil {
		a.logger.Printf("reply: %q: %v", email.Subject, err)
		return fallbackReply(email), nil
	}
	return addGreeting(unquote(strings.TrimSpace(response)), email.From, tone), nil
}

func normalizeTone(tone string) string {
	tone = strings.ToLower(strings.TrimSpace(tone))
	for _, valid := range Tones {
		if tone == valid {
			return tone
		}
	}
	return "professional"
}

func unquote(reply string) string {
	if len(reply) >= 2 && strings.HasPrefix(reply, `"`) && strings.HasSuffix(reply, `"`) {
		return reply[1 : len(reply)-1]
	}
	return reply
}

func addGreeting(reply, sender, tone string) string {
	for _, greeting := range greetings {
		if strings.HasPrefix(reply, greeting) {
			return reply
		}
	}
	if tone == "professional" || tone == "formal" {
		name := sender
		if fields := strings.Fields(sender); len(fields) > 1 {
			name = fields[0]
		}
		return fmt.Sprintf("Dear %s,\n\n%s", name, reply)
	}
	return "Hello,\n\n" + reply
}

func fallbackReply(email model.Email) string {
	subject := textutil.Fallback(email.Subject, "this matter")
	return fmt.Sprintf("Thank you for your email regarding %q.\n\nI have received your message and will get back to you shortly.\n\nBest regards", subject)
}

func replyPrompt(email model.Email, tone string) string {
	return fmt.Sprintf(`Write an email reply based on the following email.
Keep it concise (3-5 sentences) and appropriate for the content.

Original Email:
From: %s
Subject: %s
Content: %s

Tone: %s

Reply Content (start directly with the greeting and message):`,
		textutil.Fallback(email.From, "Unknown sender"),
		textutil.Fallback(email.Subject, "No subject"),
		textutil.Truncate(textutil.Fallback(email.Body, "No content"), 1500),
		tone,
	)
}

// ChatAboutEmail answers a question about the email at index. The exchange
// is recorded in the email's thread even when generation fails.
func (a *Assistant) ChatAboutEmail(ctx context.Context, index int, message string) (string, []model.ConversationEntry, error) {
	email, err := a.email(index)
	if err != nil {
		return "", nil, err
	}
	key := conversation.EmailKey(index)

	prompt := fmt.Sprintf(`Email Context:
Subject: %s
From: %s
Content: %s

Previous Conversation:
%s
New Question: %s

Provide a helpful response based on the email content.`,
		textutil.Fallback(email.Subject, "No subject"),
		textutil.Fallback(email.From, "Unknown sender"),
		textutil.Truncate(textutil.Fallback(email.Body, "No content"), 1000),
		a.memory.RenderContext(key, 3),
		message,
	)

	response, err := a.gen.Generate(ctx, prompt, 250)
	if err != nil {
		a.logger.Printf("email chat: %q: %v", email.Subject, err)
		response = emailChatFailure
		if llm.IsQuotaExceeded(err) {
			response = llm.UserMessage(err, emailChatFailure)
		}
	}
	a.memory.Append(key, message, response)
	return response, a.memory.Get(key), nil
}

// EmailChatHistory returns the chat thread of the email at index.
func (a *Assistant) EmailChatHistory(index int) ([]model.ConversationEntry, error) {
	if _, err := a.email(index); err != nil {
		return nil, err
	}
	return a.memory.Get(conversation.EmailKey(index)), nil
}

// ClearEmailChat drops the chat thread of the email at index and reports
// whether there was anything to drop.
func (a *Assistant) ClearEmailChat(index int) (bool, error) {
	if _, err := a.email(index); err != nil {
		return false, err
	}
	return a.memory.Clear(conversation.EmailKey(index)), nil
}

// SendEmail sends msg and reports success. Failures are logged.
func (a *Assistant) SendEmail(ctx context.Context, msg mailbox.Message) bool {
	if a.sender == nil {
		a.logger.Printf("send: no sender configured")
		return false
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		a.logger.Printf("send: %q to %s: %v", msg.Subject, msg.To, err)
		return false
	}
	return true
}

// SendReply sends body as a threaded reply to the email at index.
func (a *Assistant) SendReply(ctx context.Context, index int, body string) (bool, error) {
	email, err := a.email(index)
	if err != nil {
		return false, err
	}
	return a.SendEmail(ctx, replyMessage(email, body)), nil
}

func replyMessage(email model.Email, body string) mailbox.Message {
	subject := email.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	references := strings.TrimSpace(email.References)
	if email.MessageID != "" {
		references = strings.TrimSpace(references + " <" + strings.Trim(email.MessageID, "<>") + ">")
	}
	inReplyTo := ""
	if email.MessageID != "" {
		inReplyTo = "<" + strings.Trim(email.MessageID, "<>") + ">"
	}
	return mailbox.Message{
		To:         email.ReplyAddress(),
		Subject:    subject,
		Body:       body,
		InReplyTo:  inReplyTo,
		References: references,
	}
}
