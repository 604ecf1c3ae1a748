package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathakanu/inboxpilot/internal/conversation"
	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/model"
)

const (
	quotaChatReply = "Quota exceeded. Try stats queries (they work offline) or wait 24h."

	statsTips = "Organizing Tips: 1) Use labels/folders for categories. 2) Set auto-rules for newsletters. " +
		"3) Unsubscribe from spam sources. 4) Schedule 'inbox zero' time daily."
	generalTips = "Email Organizing Tips: 1) Categorize immediately (Work/Personal). 2) Use search for quick finds. " +
		"3) Archive/delete weekly. 4) Set reminders for action items. 5) Limit inbox to 50 emails max."
)

// GeneralChat answers a free-form question about the mailbox. Stats and tips
// questions are answered locally; everything else goes to the model with the
// batch statistics and the last exchanges as context. Every outcome is
// recorded in the general thread.
func (a *Assistant) GeneralChat(ctx context.Context, message string) (string, []model.ConversationEntry) {
	stats := a.Stats()
	response, ok := localChatReply(message, stats)
	if !ok {
		response = a.generateChatReply(ctx, message, stats)
	}
	a.memory.Append(conversation.GeneralKey, message, response)
	return response, a.memory.Get(conversation.GeneralKey)
}

// GeneralChatHistory returns the general thread.
func (a *Assistant) GeneralChatHistory() []model.ConversationEntry {
	return a.memory.Get(conversation.GeneralKey)
}

// ClearGeneralChat drops the general thread.
func (a *Assistant) ClearGeneralChat() bool {
	return a.memory.Clear(conversation.GeneralKey)
}

func localChatReply(message string, stats Stats) (string, bool) {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "unread") || strings.Contains(lower, "how many emails") {
		reply := fmt.Sprintf("Based on your recent emails: You have %d unread and %d read out of %d total. "+
			"Tip: Prioritize unread by category (e.g., Work/Important).", stats.Unread, stats.Read, stats.Total)
		if strings.Contains(lower, "tip") || strings.Contains(lower, "organizing") {
			reply += "\n\n" + statsTips
		}
		return reply, true
	}
	if strings.Contains(lower, "tip") || strings.Contains(lower, "organize") {
		return generalTips, true
	}
	return "", false
}

func (a *Assistant) generateChatReply(ctx context.Context, message string, stats Stats) string {
	prompt := fmt.Sprintf(`You are a helpful email management assistant. Answer the user's query concisely and helpfully.
You can provide advice on email organization, summaries of the mailbox, or general tips.

Mailbox context (if available): %s

Previous conversation:
%s
User query: %s`,
		describeStats(stats),
		a.memory.RenderContext(conversation.GeneralKey, 3),
		message,
	)

	response, err := a.gen.Generate(ctx, prompt, 300)
	if err == nil {
		return response
	}
	a.logger.Printf("chat: %v", err)
	if llm.IsQuotaExceeded(err) {
		return quotaChatReply
	}
	return fmt.Sprintf("Sorry, I encountered an error: %v. Try a simpler query.", err)
}

func describeStats(stats Stats) string {
	if stats.Total == 0 {
		return "no emails loaded"
	}
	senders := make([]string, 0, len(stats.TopSenders))
	for _, s := range stats.TopSenders {
		senders = append(senders, fmt.Sprintf("%s (%d)", s.Sender, s.Count))
	}
	return fmt.Sprintf("total_emails=%d unread_count=%d read_count=%d today_count=%d top_senders=[%s]",
		stats.Total, stats.Unread, stats.Read, stats.Today, strings.Join(senders, ", "))
}
