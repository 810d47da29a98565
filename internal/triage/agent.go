// Package triage drives the inbox pipeline: fetch, classify, aggregate.
// Each run starts fresh; nothing is persisted between runs.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corey-beep/email-agent/internal/classify"
	"github.com/corey-beep/email-agent/internal/config"
	"github.com/corey-beep/email-agent/internal/mailstore"
)

var (
	// ErrMailStoreUnavailable indicates the mailbox connection could not be acquired
	ErrMailStoreUnavailable = errors.New("mail store unavailable")
	// ErrInvalidSelection indicates an out-of-range group or email index
	ErrInvalidSelection = errors.New("invalid selection")
)

// Store is the MailStore capability the pipeline consumes. The
// connection is a scoped resource: each batch operation acquires it
// with Connect and releases it with Disconnect on every exit path.
type Store interface {
	Connect() bool
	Disconnect()
	FetchMessages(folder string, limit int, unreadOnly bool) []mailstore.Record
	ListFolders() []string
	MoveMessage(id, destFolder string) bool
	MarkRead(id string) bool
	DeleteMessage(id string) bool
	SendMessage(to, subject, body string) bool
}

// Completion is the text completion capability. It is stateless per
// call and safe to share across concurrent classification calls.
type Completion interface {
	classify.Completer
	HealthCheck(ctx context.Context) bool
}

// EmailSummary is the derived triage data for one record. It is built
// in one pass and never mutated afterwards.
type EmailSummary struct {
	Email       mailstore.Record
	Summary     string
	Category    string
	ActionItems string
	Priority    classify.Priority
}

// RoutingAction records one organize-step decision.
type RoutingAction struct {
	EmailID      string `json:"email_id"`
	Subject      string `json:"subject"`
	Category     string `json:"category"`
	TargetFolder string `json:"target_folder"` // empty when no folder matched
	Moved        bool   `json:"moved"`
}

// Status is the readiness check result reported before batch work.
type Status struct {
	Email bool `json:"email"`
	LLM   bool `json:"llm"`
	Ready bool `json:"ready"`
}

// Agent orchestrates the triage pipeline over the two capabilities.
type Agent struct {
	store Store
	llm   Completion
	cfg   config.AgentConfig
	log   *zap.Logger
}

// New creates an Agent. Configuration is passed in explicitly; the
// agent holds no ambient global state.
func New(store Store, llm Completion, cfg config.AgentConfig, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{store: store, llm: llm, cfg: cfg, log: log}
}

// CheckConnections probes both capabilities and reports readiness.
func (a *Agent) CheckConnections(ctx context.Context) Status {
	emailOK := a.store.Connect()
	llmOK := a.llm.HealthCheck(ctx)
	a.store.Disconnect()

	return Status{Email: emailOK, LLM: llmOK, Ready: emailOK && llmOK}
}

// InboxSummary fetches up to limit messages (the configured default
// when limit <= 0) and classifies each one. Cancellation is honored
// between records; a cancelled record's partial result is discarded.
func (a *Agent) InboxSummary(ctx context.Context, limit int, unreadOnly bool) ([]EmailSummary, error) {
	if limit <= 0 {
		limit = a.cfg.MaxEmailsToFetch
	}

	if !a.store.Connect() {
		return nil, ErrMailStoreUnavailable
	}
	defer a.store.Disconnect()

	records := a.store.FetchMessages("INBOX", limit, unreadOnly)
	summaries := make([]EmailSummary, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		summaries = append(summaries, a.ProcessEmail(ctx, rec))
	}
	return summaries, nil
}

// ProcessEmail runs the four classification calls for one record. The
// calls are independent and fan out concurrently; the assembled summary
// only becomes visible once all four fields are in place.
func (a *Agent) ProcessEmail(ctx context.Context, rec mailstore.Record) EmailSummary {
	result := EmailSummary{Email: rec}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text := fmt.Sprintf("Subject: %s\n\n%s", rec.Subject, rec.Body)
		result.Summary = classify.Summarize(gctx, a.llm, text, a.cfg.SummaryMaxWords)
		return nil
	})
	g.Go(func() error {
		result.Category = classify.Categorize(gctx, a.llm, rec.Subject, rec.Body, a.cfg.Categories)
		return nil
	})
	g.Go(func() error {
		result.ActionItems = classify.ExtractActionItems(gctx, a.llm, rec.Body)
		return nil
	})
	g.Go(func() error {
		result.Priority = classify.DeterminePriority(gctx, a.llm, rec.Subject, rec.Sender, rec.Body)
		return nil
	})
	_ = g.Wait() // classification never errors; Wait fences the field writes

	if result.Category == classify.CategoryFallback {
		a.log.Info("category fell back", zap.String("id", rec.ID), zap.String("subject", rec.Subject))
	}
	return result
}

// OrganizeInbox categorizes recent messages and routes each to the
// first folder whose name contains the category, case-insensitively.
// A dry run records the plan without invoking the move capability.
func (a *Agent) OrganizeInbox(ctx context.Context, dryRun bool) ([]RoutingAction, error) {
	if !a.store.Connect() {
		return nil, ErrMailStoreUnavailable
	}
	defer a.store.Disconnect()

	records := a.store.FetchMessages("INBOX", a.cfg.MaxEmailsToFetch, false)
	folders := a.store.ListFolders()

	actions := make([]RoutingAction, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return actions, err
		}

		category := classify.Categorize(ctx, a.llm, rec.Subject, rec.Body, a.cfg.Categories)
		action := RoutingAction{
			EmailID:      rec.ID,
			Subject:      rec.Subject,
			Category:     category,
			TargetFolder: RouteFolder(category, folders),
		}
		if action.TargetFolder != "" && !dryRun {
			action.Moved = a.store.MoveMessage(rec.ID, action.TargetFolder)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// RouteFolder selects the first folder, in mailbox order, whose name
// contains the category as a case-insensitive substring. Empty when
// none matches.
func RouteFolder(category string, folders []string) string {
	needle := strings.ToLower(category)
	for _, folder := range folders {
		if strings.Contains(strings.ToLower(folder), needle) {
			return folder
		}
	}
	return ""
}

// Recent fetches recent messages without classifying them, for
// presentation flows that pick a message first.
func (a *Agent) Recent(limit int) []mailstore.Record {
	if limit <= 0 {
		limit = a.cfg.MaxEmailsToFetch
	}
	if !a.store.Connect() {
		return nil
	}
	defer a.store.Disconnect()
	return a.store.FetchMessages("INBOX", limit, false)
}

// DraftReply drafts a reply body for the given record.
func (a *Agent) DraftReply(ctx context.Context, rec mailstore.Record, instructions string) string {
	return classify.DraftReply(ctx, a.llm, rec.Subject, rec.Body, instructions)
}

// MarkRead marks one message read inside its own connection scope.
func (a *Agent) MarkRead(id string) bool {
	if !a.store.Connect() {
		return false
	}
	defer a.store.Disconnect()
	return a.store.MarkRead(id)
}

// SendMessage sends a message through the store's send path.
func (a *Agent) SendMessage(to, subject, body string) bool {
	return a.store.SendMessage(to, subject, body)
}
