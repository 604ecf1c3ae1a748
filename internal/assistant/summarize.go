package assistant

import (
	"context"
	"fmt"

	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/textutil"
)

const summaryBodyRunes = 1500

// newSummarizer returns a summarize func for one batch with the same quota
// short-circuit as the categorizer.
func (a *Assistant) newSummarizer() func(context.Context, model.Email) string {
	quotaHit := false
	return func(ctx context.Context, email model.Email) string {
		if quotaHit {
			return fallbackSummary(email)
		}
		summary, err := a.gen.Generate(ctx, summaryPrompt(email, a.summaryLength), 150)
		if err != nil {
			if llm.IsQuotaExceeded(err) {
				quotaHit = true
			}
			a.logger.Printf("summarizer: %q: %v", email.Subject, err)
			return fallbackSummary(email)
		}
		if summary == "" {
			return fallbackSummary(email)
		}
		return summary
	}
}

func fallbackSummary(email model.Email) string {
	preview := textutil.FirstWords(textutil.Truncate(email.Body, summaryBodyRunes), 30)
	if preview == "" {
		return "No content available."
	}
	return fmt.Sprintf("Email regarding '%s': %s...", textutil.Fallback(email.Subject, "No subject"), preview)
}

func summaryPrompt(email model.Email, maxWords int) string {
	return fmt.Sprintf(`Summarize this email in no more than %d words:

SUBJECT: %s

CONTENT: %s

Provide a clear, concise summary that captures the main purpose and key points.
Focus on the most important information.`,
		maxWords,
		textutil.Fallback(email.Subject, "No subject"),
		textutil.Truncate(textutil.Fallback(email.Body, "No content"), summaryBodyRunes),
	)
}
