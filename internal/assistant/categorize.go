package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/textutil"
)

// Categories lists every category an email can be assigned.
var Categories = []string{"Work", "Personal", "Spam", "Newsletter", "Important", "Social", "Promotions"}

var keywordRules = []struct {
	category string
	keywords []string
}{
	{"Spam", []string{"win", "prize", "lottery", "urgent", "limited", "congratulations", "selected"}},
	{"Work", []string{"meeting", "project", "deadline", "report", "business", "work", "office", "team"}},
	{"Newsletter", []string{"newsletter", "subscribe", "unsubscribe", "digest", "update"}},
	{"Social", []string{"facebook", "twitter", "linkedin", "instagram", "invitation", "friend"}},
	{"Important", []string{"security", "alert", "important", "action required", "google", "account"}},
	{"Promotions", []string{"sale", "discount", "offer", "deal", "promotion", "buy", "shop"}},
}

// newCategorizer returns a categorize func for one batch. After the quota is
// exhausted the remaining emails use the keyword rules without calling the
// model.
func (a *Assistant) newCategorizer() func(context.Context, model.Email) string {
	quotaHit := false
	return func(ctx context.Context, email model.Email) string {
		if quotaHit {
			return keywordCategory(email)
		}
		response, err := a.gen.Generate(ctx, categoryPrompt(email), 50)
		if err != nil {
			if llm.IsQuotaExceeded(err) {
				quotaHit = true
			}
			a.logger.Printf("categorizer: %q: %v", email.Subject, err)
			return keywordCategory(email)
		}
		if category, ok := matchCategory(response); ok {
			return category
		}
		return keywordCategory(email)
	}
}

func matchCategory(response string) (string, bool) {
	lower := strings.ToLower(response)
	for _, category := range Categories {
		if strings.Contains(lower, strings.ToLower(category)) {
			return category, true
		}
	}
	return "", false
}

func keywordCategory(email model.Email) string {
	text := strings.ToLower(email.Subject + " " + textutil.Truncate(email.Body, 1000))
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.category
			}
		}
	}
	if strings.Contains(strings.ToLower(email.From), "google") {
		return "Important"
	}
	return "Personal"
}

func categoryPrompt(email model.Email) string {
	return fmt.Sprintf(`Categorize this email into ONE of these categories: %s. Choose the most fitting one.

FROM: %s
SUBJECT: %s
CONTENT: %s

Respond with ONLY the category name. If unsure, default to 'Personal'.`,
		strings.Join(Categories, ", "),
		textutil.Fallback(email.From, "Unknown sender"),
		textutil.Fallback(email.Subject, "No subject"),
		textutil.Truncate(textutil.Fallback(email.Body, "No content"), 500),
	)
}

func categoryCounts(emails []ProcessedEmail) map[string]int {
	counts := make(map[string]int, len(Categories))
	for _, category := range Categories {
		counts[category] = 0
	}
	for _, email := range emails {
		if _, ok := counts[email.Category]; ok {
			counts[email.Category]++
		}
	}
	return counts
}
