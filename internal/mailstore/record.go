package mailstore

import "github.com/emersion/go-imap"

// Record is the canonical decoded representation of one mailbox item.
// It is constructed once per fetch by the decoder and never mutated
// afterwards; classification results live in their own type.
type Record struct {
	ID      string   `json:"id"` // transport-assigned, opaque to everything above the adapter
	Subject string   `json:"subject"`
	Sender  string   `json:"sender"`
	Date    string   `json:"date"` // raw transport header value, not parsed here
	Body    string   `json:"body"`
	Folder  string   `json:"folder"`
	Flags   []string `json:"flags"`
}

// IsUnread reports whether the message lacks the seen flag.
func (r Record) IsUnread() bool {
	for _, f := range r.Flags {
		if f == imap.SeenFlag {
			return false
		}
	}
	return true
}
