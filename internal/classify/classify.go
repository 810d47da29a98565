// Package classify turns free-text model output into bounded, validated
// classifications. Every function here is a deterministic policy over
// (prompt text, raw completion text); the only side effect is the
// completion call itself.
package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Completer is the completion capability consumed by the policy. It
// fails closed: transport errors come back as descriptive text, which
// the policies below resolve to their documented fallbacks.
type Completer interface {
	Complete(ctx context.Context, prompt, systemPrompt string) string
}

// Priority is the bounded priority classification of a message.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

const (
	// CategoryFallback is returned when no configured category name
	// appears in the model's answer.
	CategoryFallback = "Other"

	// NoActionItems is the sentinel the model is instructed to answer
	// when an email contains nothing actionable. Consumers detect it
	// with HasActionItems rather than exact comparison.
	NoActionItems = "No action items found."

	// bodyPromptLimit bounds how much body text classification prompts
	// carry, keeping call cost and exposure flat per message.
	bodyPromptLimit = 500
)

// Categorize asks the model for exactly one category name and maps the
// answer onto the closed set: the first line of the response is scanned
// for each category name in list order, case-insensitively, and the
// first name it contains wins. Anything else resolves to the fallback.
func Categorize(ctx context.Context, c Completer, subject, body string, categories []string) string {
	systemPrompt := `You are a helpful assistant that categorizes emails.
Only respond with the category name, nothing else.`

	prompt := fmt.Sprintf(`Categorize this email into one of these categories: %s

Subject: %s

%s

Category:`, strings.Join(categories, ", "), subject, truncate(body, bodyPromptLimit))

	response := c.Complete(ctx, prompt, systemPrompt)
	firstLine, _, _ := strings.Cut(strings.TrimSpace(response), "\n")
	firstLine = strings.ToLower(firstLine)

	for _, cat := range categories {
		if strings.Contains(firstLine, strings.ToLower(cat)) {
			return cat
		}
	}
	return CategoryFallback
}

// DeterminePriority rates a message HIGH, MEDIUM, or LOW. HIGH is
// tested before LOW, so an answer containing both resolves HIGH; an
// answer containing neither resolves MEDIUM, which doubles as the
// "could not determine" outcome.
func DeterminePriority(ctx context.Context, c Completer, subject, sender, body string) Priority {
	prompt := fmt.Sprintf(`Rate the priority of this email as HIGH, MEDIUM, or LOW.
Consider urgency, sender importance, and deadlines.
Only respond with one word: HIGH, MEDIUM, or LOW.

Subject: %s
From: %s

%s`, subject, sender, truncate(body, bodyPromptLimit))

	response := strings.ToUpper(strings.TrimSpace(c.Complete(ctx, prompt, "")))

	if strings.Contains(response, "HIGH") {
		return PriorityHigh
	}
	if strings.Contains(response, "LOW") {
		return PriorityLow
	}
	return PriorityMedium
}

// ExtractActionItems lists actionable items one per line, or the
// no-items sentinel. The response is trusted verbatim; no local parsing.
func ExtractActionItems(ctx context.Context, c Completer, body string) string {
	systemPrompt := fmt.Sprintf(`You are a helpful assistant that extracts action items from emails.
List each action item on a new line starting with '- '.
If there are no action items, respond with '%s'`, NoActionItems)

	prompt := fmt.Sprintf(`Extract all action items, tasks, or things that need to be done from this email:

%s`, body)

	return c.Complete(ctx, prompt, systemPrompt)
}

// HasActionItems reports whether an action-items answer names anything
// actionable. The sentinel test is a case-insensitive substring so
// phrasing like "No action items were found." still counts as empty.
func HasActionItems(actionItems string) bool {
	return !strings.Contains(strings.ToLower(actionItems), "no action")
}

// Summarize produces a summary of the given text. The word bound is
// advisory to the model only; it is not enforced locally.
func Summarize(ctx context.Context, c Completer, text string, maxWords int) string {
	systemPrompt := `You are a helpful assistant that summarizes emails concisely.
Focus on: key points, action items, deadlines, and important details.
Be brief and use bullet points when appropriate.`

	prompt := fmt.Sprintf(`Summarize this email in %d words or less:

%s`, maxWords, text)

	return c.Complete(ctx, prompt, systemPrompt)
}

// DraftReply drafts a reply body for the given email, optionally
// steered by extra instructions.
func DraftReply(ctx context.Context, c Completer, subject, body, instructions string) string {
	systemPrompt := `You are a helpful assistant that drafts professional email replies.
Match the tone of the original email. Be concise but thorough.
Only output the reply body, no subject line or headers.`

	prompt := fmt.Sprintf(`Draft a reply to this email:

Subject: %s

%s`, subject, body)

	if instructions != "" {
		prompt += fmt.Sprintf("\n\nAdditional instructions: %s", instructions)
	}

	return c.Complete(ctx, prompt, systemPrompt)
}

// IsDeletable asks whether a message is safe to delete outright.
// Only an answer whose first line contains YES counts; every other
// answer, including transport errors, keeps the message.
func IsDeletable(ctx context.Context, c Completer, subject, sender, body string) bool {
	systemPrompt := `You are a helpful assistant that identifies emails safe to delete.
Safe to delete means: promotional offers, expired notifications, automated
alerts with no lasting value, newsletters the user clearly does not read.
Never mark personal correspondence, receipts, legal or security notices.
Only respond with one word: YES or NO.`

	prompt := fmt.Sprintf(`Is this email safe to delete?

Subject: %s
From: %s

%s`, subject, sender, truncate(body, bodyPromptLimit))

	response := c.Complete(ctx, prompt, systemPrompt)
	firstLine, _, _ := strings.Cut(strings.TrimSpace(response), "\n")
	return strings.Contains(strings.ToUpper(firstLine), "YES")
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
