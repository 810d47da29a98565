package mailstore

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
)

func init() {
	// Register the extended charset table so message.Read can decode
	// non-UTF-8 parts (GBK, ISO-8859-*, ...).
	message.CharsetReader = charset.Reader
}

// DecodeHeader decodes a possibly RFC 2047 encoded header value.
// Each encoded segment is decoded with its declared charset, falling
// back to the raw segment text when the encoding or charset is broken.
// Segments are joined with a single space. A missing header yields "".
func DecodeHeader(value string) string {
	if value == "" {
		return ""
	}

	dec := &mime.WordDecoder{CharsetReader: lenientCharsetReader}
	fields := strings.Fields(value)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if strings.HasPrefix(field, "=?") && strings.HasSuffix(field, "?=") {
			if decoded, err := dec.Decode(field); err == nil {
				parts = append(parts, toValidUTF8(decoded))
				continue
			}
		}
		parts = append(parts, toValidUTF8(field))
	}
	return strings.Join(parts, " ")
}

// lenientCharsetReader resolves a declared charset, treating anything
// unrecognized as UTF-8 so a bad label degrades instead of erroring.
func lenientCharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.Reader(label, input)
	if err != nil {
		return input, nil
	}
	return r, nil
}

// DecodeMessage turns a raw RFC 5322 payload plus transport metadata
// into a Record. Decoding never fails: every malformed sub-part
// degrades to an empty or raw-text value for that field only.
func DecodeMessage(id, folder string, raw []byte, flags []string) Record {
	rec := Record{
		ID:     id,
		Folder: folder,
		Flags:  append([]string(nil), flags...),
	}
	if len(raw) == 0 {
		return rec
	}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) || entity == nil {
		// Structured parse failed entirely; salvage what net/mail can
		// see and render the rest as raw text.
		if m, merr := mail.ReadMessage(bytes.NewReader(raw)); merr == nil {
			rec.Subject = DecodeHeader(m.Header.Get("Subject"))
			rec.Sender = DecodeHeader(m.Header.Get("From"))
			rec.Date = m.Header.Get("Date")
			body, _ := io.ReadAll(m.Body)
			rec.Body = strings.TrimSpace(toValidUTF8(string(body)))
		} else {
			rec.Body = strings.TrimSpace(toValidUTF8(string(raw)))
		}
		return rec
	}

	rec.Subject = DecodeHeader(entity.Header.Get("Subject"))
	rec.Sender = DecodeHeader(entity.Header.Get("From"))
	rec.Date = entity.Header.Get("Date")

	mediaType, _, _ := entity.Header.ContentType()
	if strings.HasPrefix(mediaType, "multipart/") {
		var body string
		collectPlainText(entity, &body)
		rec.Body = strings.TrimSpace(toValidUTF8(body))
	} else {
		body, rerr := io.ReadAll(entity.Body)
		if rerr != nil {
			rec.Body = strings.TrimSpace(toValidUTF8(string(raw)))
		} else {
			rec.Body = strings.TrimSpace(toValidUTF8(string(body)))
		}
	}

	return rec
}

// collectPlainText walks a multipart entity and fills body with the
// first decodable text/plain part, regardless of nesting depth.
func collectPlainText(entity *message.Entity, body *string) {
	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			collectPlainText(part, body)
			if *body != "" {
				return
			}
		}
	} else if mediaType == "text/plain" && *body == "" {
		b, err := io.ReadAll(entity.Body)
		if err != nil {
			return
		}
		*body = string(b)
	}
}

// toValidUTF8 replaces invalid byte sequences so decoded text is always
// well formed.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
