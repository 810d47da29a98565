package triage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/corey-beep/email-agent/internal/classify"
	"github.com/corey-beep/email-agent/internal/mailstore"
)

const (
	// DefaultCleanLimit is the scan window when the caller gives none.
	DefaultCleanLimit = 30

	previewLength = 100
)

// DeletableEmail is one deletion candidate with a one-line preview.
type DeletableEmail struct {
	Email   mailstore.Record
	Preview string
}

// DeletionGroup holds the candidates from one sender, in scan order.
type DeletionGroup struct {
	Sender string
	Emails []DeletableEmail
}

// DeletionScan is the result of one clean-inbox pass: candidate groups
// keyed by sender, in first-seen order. Selections use 1-based indexes
// to match the presentation layer's numbering; removals mutate the scan
// in place.
type DeletionScan struct {
	Groups []DeletionGroup
}

// FindDeletable scans a bounded window of recent messages and groups
// the ones judged safe to delete by sender. The deletability decision
// is a dedicated completion call per message; anything short of an
// explicit yes keeps the message.
func (a *Agent) FindDeletable(ctx context.Context, limit int) (*DeletionScan, error) {
	if limit <= 0 {
		limit = DefaultCleanLimit
	}

	if !a.store.Connect() {
		return nil, ErrMailStoreUnavailable
	}
	defer a.store.Disconnect()

	records := a.store.FetchMessages("INBOX", limit, false)

	scan := &DeletionScan{}
	groupIndex := make(map[string]int)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return scan, err
		}
		if !classify.IsDeletable(ctx, a.llm, rec.Subject, rec.Sender, rec.Body) {
			continue
		}

		candidate := DeletableEmail{Email: rec, Preview: preview(rec.Body)}
		if i, ok := groupIndex[rec.Sender]; ok {
			scan.Groups[i].Emails = append(scan.Groups[i].Emails, candidate)
		} else {
			groupIndex[rec.Sender] = len(scan.Groups)
			scan.Groups = append(scan.Groups, DeletionGroup{
				Sender: rec.Sender,
				Emails: []DeletableEmail{candidate},
			})
		}
	}

	a.log.Info("deletable scan complete",
		zap.Int("scanned", len(records)),
		zap.Int("candidates", scan.Total()),
		zap.Int("senders", len(scan.Groups)))
	return scan, nil
}

// DeleteOne deletes a single message inside its own connection scope.
func (a *Agent) DeleteOne(id string) bool {
	if !a.store.Connect() {
		return false
	}
	defer a.store.Disconnect()
	return a.store.DeleteMessage(id)
}

// DeleteBySender deletes every listed message and returns how many
// deletions the transport confirmed.
func (a *Agent) DeleteBySender(ids []string) int {
	if !a.store.Connect() {
		return 0
	}
	defer a.store.Disconnect()

	deleted := 0
	for _, id := range ids {
		if a.store.DeleteMessage(id) {
			deleted++
		}
	}
	return deleted
}

// Total returns the number of candidates across all groups.
func (s *DeletionScan) Total() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Emails)
	}
	return n
}

// Group returns the 1-based numbered group.
func (s *DeletionScan) Group(n int) (*DeletionGroup, error) {
	if n < 1 || n > len(s.Groups) {
		return nil, ErrInvalidSelection
	}
	return &s.Groups[n-1], nil
}

// Email returns the m-th candidate of the n-th group, both 1-based.
func (s *DeletionScan) Email(n, m int) (*DeletableEmail, error) {
	group, err := s.Group(n)
	if err != nil {
		return nil, err
	}
	if m < 1 || m > len(group.Emails) {
		return nil, ErrInvalidSelection
	}
	return &group.Emails[m-1], nil
}

// RemoveEmail removes one candidate from its group in place.
func (s *DeletionScan) RemoveEmail(n, m int) error {
	group, err := s.Group(n)
	if err != nil {
		return err
	}
	if m < 1 || m > len(group.Emails) {
		return ErrInvalidSelection
	}
	group.Emails = append(group.Emails[:m-1], group.Emails[m:]...)
	return nil
}

// RemoveGroup removes a whole group from the scan.
func (s *DeletionScan) RemoveGroup(n int) error {
	if n < 1 || n > len(s.Groups) {
		return ErrInvalidSelection
	}
	s.Groups = append(s.Groups[:n-1], s.Groups[n:]...)
	return nil
}

// preview flattens a body into a short single line.
func preview(body string) string {
	line := strings.Join(strings.Fields(body), " ")
	if len(line) > previewLength {
		line = line[:previewLength]
	}
	return line
}
