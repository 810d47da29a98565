package triage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corey-beep/email-agent/internal/mailstore"
)

func cleanRecords() []mailstore.Record {
	return []mailstore.Record{
		{ID: "1", Subject: "50% off everything", Sender: "promo@shop.example", Body: "Sale ends soon"},
		{ID: "2", Subject: "Your receipt", Sender: "billing@corp.example", Body: "Receipt attached"},
		{ID: "3", Subject: "Flash sale tonight", Sender: "promo@shop.example", Body: "Tonight only"},
		{ID: "4", Subject: "Daily deals digest", Sender: "deals@other.example", Body: "Deals deals deals"},
	}
}

func cleanLLM() *fakeLLM {
	return &fakeLLM{
		deletable: map[string]string{
			"50% off everything": "YES",
			"Flash sale tonight": "YES",
			"Daily deals digest": "YES",
			"Your receipt":       "NO",
		},
	}
}

func TestFindDeletable(t *testing.T) {
	store := newFakeStore(cleanRecords(), nil)
	agent := New(store, cleanLLM(), testConfig(), zap.NewNop())

	scan, err := agent.FindDeletable(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, scan.Total())
	require.Len(t, scan.Groups, 2)

	// Groups appear in first-seen order with candidates in scan order.
	assert.Equal(t, "promo@shop.example", scan.Groups[0].Sender)
	require.Len(t, scan.Groups[0].Emails, 2)
	assert.Equal(t, "1", scan.Groups[0].Emails[0].Email.ID)
	assert.Equal(t, "3", scan.Groups[0].Emails[1].Email.ID)

	assert.Equal(t, "deals@other.example", scan.Groups[1].Sender)

	// The receipt was judged not deletable and never appears.
	for _, group := range scan.Groups {
		for _, candidate := range group.Emails {
			assert.NotEqual(t, "2", candidate.Email.ID)
		}
	}

	assert.Equal(t, store.connects, store.disconnects)
}

func TestFindDeletableFailClosed(t *testing.T) {
	// An LLM that errors out answers with transport error text; nothing
	// may be marked deletable.
	store := newFakeStore(cleanRecords(), nil)
	llm := &fakeLLM{} // deletable map empty: every answer is NO
	agent := New(store, llm, testConfig(), zap.NewNop())

	scan, err := agent.FindDeletable(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, scan.Total())
	assert.Empty(t, scan.Groups)
}

func TestScanAccessors(t *testing.T) {
	store := newFakeStore(cleanRecords(), nil)
	agent := New(store, cleanLLM(), testConfig(), zap.NewNop())
	scan, err := agent.FindDeletable(context.Background(), 0)
	require.NoError(t, err)

	t.Run("valid selections", func(t *testing.T) {
		group, err := scan.Group(1)
		require.NoError(t, err)
		assert.Equal(t, "promo@shop.example", group.Sender)

		candidate, err := scan.Email(1, 2)
		require.NoError(t, err)
		assert.Equal(t, "3", candidate.Email.ID)
	})

	t.Run("out of range selections", func(t *testing.T) {
		_, err := scan.Group(0)
		assert.ErrorIs(t, err, ErrInvalidSelection)
		_, err = scan.Group(3)
		assert.ErrorIs(t, err, ErrInvalidSelection)
		_, err = scan.Email(1, 0)
		assert.ErrorIs(t, err, ErrInvalidSelection)
		_, err = scan.Email(1, 3)
		assert.ErrorIs(t, err, ErrInvalidSelection)
		_, err = scan.Email(9, 1)
		assert.ErrorIs(t, err, ErrInvalidSelection)
	})
}

func TestScanRemoval(t *testing.T) {
	store := newFakeStore(cleanRecords(), nil)
	agent := New(store, cleanLLM(), testConfig(), zap.NewNop())
	scan, err := agent.FindDeletable(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, scan.Total())

	require.NoError(t, scan.RemoveEmail(1, 1))
	assert.Equal(t, 2, scan.Total())
	remaining, err := scan.Email(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "3", remaining.Email.ID)

	require.NoError(t, scan.RemoveGroup(1))
	assert.Equal(t, 1, scan.Total())
	assert.Equal(t, "deals@other.example", scan.Groups[0].Sender)

	assert.ErrorIs(t, scan.RemoveGroup(2), ErrInvalidSelection)
	assert.ErrorIs(t, scan.RemoveEmail(1, 5), ErrInvalidSelection)
}

func TestDeleteOperations(t *testing.T) {
	t.Run("delete one", func(t *testing.T) {
		store := newFakeStore(cleanRecords(), nil)
		agent := New(store, cleanLLM(), testConfig(), zap.NewNop())

		assert.True(t, agent.DeleteOne("1"))
		assert.Equal(t, []string{"1"}, store.deleted)
		assert.Equal(t, store.connects, store.disconnects)
	})

	t.Run("delete by sender counts confirmations", func(t *testing.T) {
		store := newFakeStore(cleanRecords(), nil)
		agent := New(store, cleanLLM(), testConfig(), zap.NewNop())

		deleted := agent.DeleteBySender([]string{"1", "3"})
		assert.Equal(t, 2, deleted)
		assert.Equal(t, []string{"1", "3"}, store.deleted)
	})

	t.Run("connection failure deletes nothing", func(t *testing.T) {
		store := newFakeStore(cleanRecords(), nil)
		store.connectOK = false
		agent := New(store, cleanLLM(), testConfig(), zap.NewNop())

		assert.False(t, agent.DeleteOne("1"))
		assert.Zero(t, agent.DeleteBySender([]string{"1", "3"}))
		assert.Empty(t, store.deleted)
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n  b\t\nc"))

	long := strings.Repeat("word ", 40)
	got := preview(long)
	assert.LessOrEqual(t, len(got), 100)
	assert.NotContains(t, got, "\n")
}
