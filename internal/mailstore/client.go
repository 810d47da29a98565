package mailstore

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	id "github.com/emersion/go-imap-id"
	"go.uber.org/zap"

	"github.com/corey-beep/email-agent/internal/config"
)

const (
	dialTimeout    = 10 * time.Second
	commandTimeout = 2 * time.Minute
	fetchBuffer    = 16
)

// Client is the MailStore adapter: a single IMAP session plus an SMTP
// send path. Capability methods report failure as a boolean so one bad
// message or dropped connection never aborts a batch; callers acquire
// the session with Connect and must release it with Disconnect on every
// exit path.
type Client struct {
	cfg      config.EmailConfig
	log      *zap.Logger
	c        *client.Client
	selected string
}

// NewClient creates a disconnected client for the given account.
func NewClient(cfg config.EmailConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, log: log}
}

// Connect establishes and authenticates the IMAP session. Returns false
// on any network or auth failure.
func (s *Client) Connect() bool {
	if s.c != nil {
		return true
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.IMAPServer, s.cfg.IMAPPort)
	dialer := &net.Dialer{Timeout: dialTimeout}

	var c *client.Client
	if s.cfg.UseSSL {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.IMAPServer})
		if err != nil {
			s.log.Warn("IMAP dial failed", zap.String("addr", addr), zap.Error(err))
			return false
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			s.log.Warn("IMAP handshake failed", zap.String("addr", addr), zap.Error(err))
			return false
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			s.log.Warn("IMAP dial failed", zap.String("addr", addr), zap.Error(err))
			return false
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			s.log.Warn("IMAP handshake failed", zap.String("addr", addr), zap.Error(err))
			return false
		}
	}
	c.Timeout = commandTimeout

	// Some providers (163.com, 188.com) refuse LOGIN until the client
	// identifies itself.
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		_, _ = idClient.ID(id.ID{
			id.FieldName:    "email-agent",
			id.FieldVersion: "1.0.0",
		})
	}

	if err := c.Login(s.cfg.Address, s.cfg.Password); err != nil {
		c.Logout()
		s.log.Warn("IMAP login failed", zap.String("addr", addr), zap.Error(err))
		return false
	}

	s.c = c
	return true
}

// Disconnect releases the session. Idempotent and safe when not
// connected.
func (s *Client) Disconnect() {
	if s.c == nil {
		return
	}
	if err := s.c.Logout(); err != nil {
		s.log.Debug("IMAP logout error", zap.Error(err))
	}
	s.c = nil
	s.selected = ""
}

// FetchMessages returns at most limit decoded records from folder,
// most recently received first. With unreadOnly set, only messages
// without the seen flag are returned.
func (s *Client) FetchMessages(folder string, limit int, unreadOnly bool) []Record {
	if s.c == nil && !s.Connect() {
		return nil
	}

	if _, err := s.c.Select(folder, false); err != nil {
		s.log.Warn("folder select failed", zap.String("folder", folder), zap.Error(err))
		return nil
	}
	s.selected = folder

	criteria := imap.NewSearchCriteria()
	if unreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	seqNums, err := s.c.Search(criteria)
	if err != nil {
		s.log.Warn("search failed", zap.String("folder", folder), zap.Error(err))
		return nil
	}
	if len(seqNums) == 0 {
		return []Record{}
	}

	if limit > 0 && len(seqNums) > limit {
		seqNums = seqNums[len(seqNums)-limit:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, section.FetchItem()}

	messages := make(chan *imap.Message, fetchBuffer)
	done := make(chan error, 1)
	go func() {
		done <- s.c.Fetch(seqSet, items, messages)
	}()

	var records []Record
	for msg := range messages {
		if msg == nil {
			continue
		}
		var raw []byte
		if literal := msg.GetBody(section); literal != nil {
			raw = readLiteral(literal)
		}
		rec := DecodeMessage(strconv.FormatUint(uint64(msg.Uid), 10), folder, raw, msg.Flags)
		records = append(records, rec)
	}
	if err := <-done; err != nil {
		s.log.Warn("fetch error", zap.String("folder", folder), zap.Error(err))
	}

	// Fetch yields mailbox order; callers expect newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records
}

// ListFolders returns the names of all folders visible to the session.
func (s *Client) ListFolders() []string {
	if s.c == nil && !s.Connect() {
		return nil
	}

	mailboxes := make(chan *imap.MailboxInfo, fetchBuffer)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		if m != nil {
			folders = append(folders, m.Name)
		}
	}
	if err := <-done; err != nil {
		s.log.Warn("list folders failed", zap.Error(err))
	}
	return folders
}

// MoveMessage moves a message to destFolder via COPY plus delete; the
// UID convention predates the MOVE extension and works everywhere.
func (s *Client) MoveMessage(msgID, destFolder string) bool {
	uidSet, ok := s.uidSet(msgID)
	if !ok {
		return false
	}
	if err := s.c.UidCopy(uidSet, destFolder); err != nil {
		s.log.Warn("copy failed", zap.String("id", msgID), zap.String("dest", destFolder), zap.Error(err))
		return false
	}
	return s.deleteSet(uidSet, msgID)
}

// DeleteMessage flags a message deleted and expunges it.
func (s *Client) DeleteMessage(msgID string) bool {
	uidSet, ok := s.uidSet(msgID)
	if !ok {
		return false
	}
	return s.deleteSet(uidSet, msgID)
}

// MarkRead adds the seen flag to a message.
func (s *Client) MarkRead(msgID string) bool {
	uidSet, ok := s.uidSet(msgID)
	if !ok {
		return false
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(uidSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		s.log.Warn("mark read failed", zap.String("id", msgID), zap.Error(err))
		return false
	}
	return true
}

// uidSet parses a record ID back into a UID set. IDs are opaque above
// this adapter; only the adapter that minted them may parse them. UID
// commands need a selected mailbox, so a freshly acquired session
// selects INBOX, where all records in this application originate.
func (s *Client) uidSet(msgID string) (*imap.SeqSet, bool) {
	if s.c == nil && !s.Connect() {
		return nil, false
	}
	if s.selected == "" {
		if _, err := s.c.Select("INBOX", false); err != nil {
			s.log.Warn("folder select failed", zap.String("folder", "INBOX"), zap.Error(err))
			return nil, false
		}
		s.selected = "INBOX"
	}
	uid, err := strconv.ParseUint(msgID, 10, 32)
	if err != nil {
		s.log.Warn("malformed message id", zap.String("id", msgID))
		return nil, false
	}
	set := new(imap.SeqSet)
	set.AddNum(uint32(uid))
	return set, true
}

func (s *Client) deleteSet(uidSet *imap.SeqSet, msgID string) bool {
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(uidSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		s.log.Warn("delete flag failed", zap.String("id", msgID), zap.Error(err))
		return false
	}
	if err := s.c.Expunge(nil); err != nil {
		s.log.Warn("expunge failed", zap.String("id", msgID), zap.Error(err))
		return false
	}
	return true
}

func readLiteral(literal imap.Literal) []byte {
	b, err := io.ReadAll(literal)
	if err != nil && len(b) == 0 {
		return nil
	}
	return b
}
