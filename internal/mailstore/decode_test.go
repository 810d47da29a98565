package mailstore

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", ""},
		{"plain ascii", "Weekly Report", "Weekly Report"},
		{"q encoded utf8", "=?UTF-8?Q?Caf=C3=A9?=", "Café"},
		{"b encoded utf8", "=?UTF-8?B?5pel5pys6Kqe?=", "日本語"},
		{"iso-8859-1", "=?ISO-8859-1?Q?f=FCr?=", "für"},
		{
			"encoded segment next to plain text",
			"=?UTF-8?Q?Hello?= world",
			"Hello world",
		},
		{
			"adjacent encoded words joined with one space",
			"=?UTF-8?Q?foo?= =?UTF-8?Q?bar?=",
			"foo bar",
		},
		{
			"broken encoding kept verbatim",
			"=?UTF-8?Q?incomplete",
			"=?UTF-8?Q?incomplete",
		},
		{
			"unknown charset decoded as utf8",
			"=?X-NOPE?Q?plain?=",
			"plain",
		},
		{
			"whitespace runs collapse",
			"a   b\tc",
			"a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeHeader(tt.value))
		})
	}
}

func TestDecodeHeaderAlwaysValidUTF8(t *testing.T) {
	got := DecodeHeader("=?UTF-8?B?/w==?=") // 0xFF is not valid UTF-8
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "�")
}

func TestDecodeMessageSimple(t *testing.T) {
	raw := []byte("Subject: Invoice due\r\n" +
		"From: billing@example.com\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Please pay by Friday.\r\n")

	rec := DecodeMessage("42", "INBOX", raw, []string{"\\Seen"})

	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "INBOX", rec.Folder)
	assert.Equal(t, "Invoice due", rec.Subject)
	assert.Equal(t, "billing@example.com", rec.Sender)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 -0700", rec.Date)
	assert.Equal(t, "Please pay by Friday.", rec.Body)
	assert.False(t, rec.IsUnread())
}

func TestDecodeMessageMultipart(t *testing.T) {
	raw := []byte("Subject: mixed\r\n" +
		"From: a@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--BOUNDARY--\r\n")

	rec := DecodeMessage("7", "INBOX", raw, nil)

	// The plain part wins even though the html part comes first.
	assert.Equal(t, "plain version", rec.Body)
	assert.NotContains(t, rec.Body, "html")
}

func TestDecodeMessageNestedMultipart(t *testing.T) {
	raw := []byte("Subject: nested\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=OUTER\r\n" +
		"\r\n" +
		"--OUTER\r\n" +
		"Content-Type: multipart/alternative; boundary=INNER\r\n" +
		"\r\n" +
		"--INNER\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"buried text\r\n" +
		"--INNER--\r\n" +
		"--OUTER\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-fake\r\n" +
		"--OUTER--\r\n")

	rec := DecodeMessage("8", "INBOX", raw, nil)
	assert.Equal(t, "buried text", rec.Body)
}

func TestDecodeMessageEncodedHeaders(t *testing.T) {
	raw := []byte("Subject: =?UTF-8?B?6KOF6aWw?=\r\n" +
		"From: =?UTF-8?Q?M=C3=BCller?= <mueller@example.com>\r\n" +
		"\r\n" +
		"body\r\n")

	rec := DecodeMessage("9", "INBOX", raw, nil)
	assert.Equal(t, "装饰", rec.Subject)
	assert.Contains(t, rec.Sender, "Müller")
	assert.Contains(t, rec.Sender, "mueller@example.com")
}

func TestDecodeMessageQuotedPrintableBody(t *testing.T) {
	raw := []byte("Subject: qp\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 time\r\n")

	rec := DecodeMessage("10", "INBOX", raw, nil)
	assert.Equal(t, "café time", rec.Body)
}

func TestDecodeMessageGarbage(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		rec := DecodeMessage("11", "INBOX", nil, nil)
		assert.Equal(t, "11", rec.ID)
		assert.Empty(t, rec.Subject)
		assert.Empty(t, rec.Body)
	})

	t.Run("not a message at all", func(t *testing.T) {
		rec := DecodeMessage("12", "INBOX", []byte("\xff\xfe garbage bytes"), nil)
		require.True(t, utf8.ValidString(rec.Body))
		assert.Equal(t, "12", rec.ID)
	})

	t.Run("headers only", func(t *testing.T) {
		rec := DecodeMessage("13", "INBOX", []byte("Subject: bare\r\n\r\n"), nil)
		assert.Equal(t, "bare", rec.Subject)
		assert.Empty(t, rec.Body)
	})
}

func TestRecordIsUnread(t *testing.T) {
	unread := Record{Flags: []string{"\\Flagged"}}
	read := Record{Flags: []string{"\\Flagged", "\\Seen"}}
	none := Record{}

	assert.True(t, unread.IsUnread())
	assert.False(t, read.IsUnread())
	assert.True(t, none.IsUnread())
}

func TestDecodeMessageBodyNeverInvalid(t *testing.T) {
	raw := []byte("Subject: bad bytes\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"ok \xff\xfe bad\r\n")

	rec := DecodeMessage("14", "INBOX", raw, nil)
	assert.True(t, utf8.ValidString(rec.Body))
	assert.True(t, strings.HasPrefix(rec.Body, "ok"))
}
