package mailstore

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// loginAuth implements smtp.Auth for LOGIN authentication.
// Required for QQ Mail, 163 Mail and other providers that reject PLAIN.
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch string(fromServer) {
		case "Username:", "username:":
			return []byte(a.username), nil
		case "Password:", "password:":
			return []byte(a.password), nil
		default:
			// Some servers send base64 encoded prompts
			decoded, err := base64.StdEncoding.DecodeString(string(fromServer))
			if err == nil {
				switch strings.ToLower(string(decoded)) {
				case "username:", "username":
					return []byte(a.username), nil
				case "password:", "password":
					return []byte(a.password), nil
				}
			}
			return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
		}
	}
	return nil, nil
}

// SendMessage sends a plain-text message via SMTP with STARTTLS.
// Returns false on any failure; sending shares no state with the IMAP
// session.
func (s *Client) SendMessage(to, subject, body string) bool {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPServer, s.cfg.SMTPPort)

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		s.log.Warn("SMTP dial failed", zap.String("addr", addr), zap.Error(err))
		return false
	}
	conn.SetDeadline(time.Now().Add(commandTimeout))

	c, err := smtp.NewClient(conn, s.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		s.log.Warn("SMTP handshake failed", zap.String("addr", addr), zap.Error(err))
		return false
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.SMTPServer}); err != nil {
			s.log.Warn("STARTTLS failed", zap.Error(err))
			return false
		}
	}

	auth := smtp.PlainAuth("", s.cfg.Address, s.cfg.Password, s.cfg.SMTPServer)
	if err := c.Auth(auth); err != nil {
		// Retry with LOGIN on a fresh session; the server most likely
		// does not advertise PLAIN.
		c.Quit()
		return s.sendWithLoginAuth(addr, to, subject, body)
	}

	if !s.submit(c, to, subject, body) {
		return false
	}
	if err := c.Quit(); err != nil {
		s.log.Debug("SMTP quit error", zap.Error(err))
	}
	return true
}

func (s *Client) sendWithLoginAuth(addr, to, subject, body string) bool {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return false
	}
	conn.SetDeadline(time.Now().Add(commandTimeout))

	c, err := smtp.NewClient(conn, s.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return false
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.SMTPServer}); err != nil {
			return false
		}
	}
	if err := c.Auth(newLoginAuth(s.cfg.Address, s.cfg.Password)); err != nil {
		s.log.Warn("SMTP auth failed", zap.Error(err))
		return false
	}

	if !s.submit(c, to, subject, body) {
		return false
	}
	c.Quit()
	return true
}

func (s *Client) submit(c *smtp.Client, to, subject, body string) bool {
	if err := c.Mail(s.cfg.Address); err != nil {
		s.log.Warn("SMTP MAIL failed", zap.Error(err))
		return false
	}
	if err := c.Rcpt(to); err != nil {
		s.log.Warn("SMTP RCPT failed", zap.String("to", to), zap.Error(err))
		return false
	}
	w, err := c.Data()
	if err != nil {
		s.log.Warn("SMTP DATA failed", zap.Error(err))
		return false
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.Address, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		s.log.Warn("SMTP write failed", zap.Error(err))
		return false
	}
	if err := w.Close(); err != nil {
		s.log.Warn("SMTP message rejected", zap.Error(err))
		return false
	}
	return true
}
