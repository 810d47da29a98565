package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/corey-beep/email-agent/internal/classify"
)

// EmptyDigest is returned when there is nothing to summarize.
const EmptyDigest = "No unread emails to summarize."

// DailyDigest classifies the unread inbox and renders it as a digest
// document.
func (a *Agent) DailyDigest(ctx context.Context) (string, error) {
	summaries, err := a.InboxSummary(ctx, 0, true)
	if err != nil {
		return "", err
	}
	return Digest(summaries), nil
}

// Digest renders classified summaries as a markdown digest: priority
// sections in HIGH, MEDIUM, LOW order (input order preserved within
// each), then a consolidated action-items section listing every entry
// whose action items are not the no-items sentinel.
func Digest(summaries []EmailSummary) string {
	if len(summaries) == 0 {
		return EmptyDigest
	}

	parts := []string{fmt.Sprintf("# Daily Email Digest\n\nYou have %d unread email(s).\n", len(summaries))}

	groups := []struct {
		priority classify.Priority
		heading  string
	}{
		{classify.PriorityHigh, "\n## High Priority\n"},
		{classify.PriorityMedium, "\n## Medium Priority\n"},
		{classify.PriorityLow, "\n## Low Priority\n"},
	}
	for _, group := range groups {
		var blocks []string
		for _, s := range summaries {
			if s.Priority == group.priority {
				blocks = append(blocks, formatSummary(s))
			}
		}
		if len(blocks) > 0 {
			parts = append(parts, group.heading)
			parts = append(parts, blocks...)
		}
	}

	var actions []string
	for _, s := range summaries {
		if classify.HasActionItems(s.ActionItems) {
			actions = append(actions, fmt.Sprintf("From '%s':\n%s", s.Email.Subject, s.ActionItems))
		}
	}
	if len(actions) > 0 {
		parts = append(parts, "\n## All Action Items\n")
		parts = append(parts, actions...)
	}

	return strings.Join(parts, "\n")
}

func formatSummary(s EmailSummary) string {
	return fmt.Sprintf(`
**%s**
From: %s
Category: %s

%s

---
`, s.Email.Subject, s.Email.Sender, s.Category, s.Summary)
}
