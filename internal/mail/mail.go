// Package mail implements the outgoing SMTP and incoming IMAP transports
// consumed by the conversational core.
package mail

import (
	"errors"
	"time"

	"github.com/spigell/hr-copilot/internal/session"
)

var (
	// ErrSend indicates the SMTP transport failed to deliver the message.
	ErrSend = errors.New("sending email failed")
	// ErrFetch indicates the IMAP transport failed to read the mailbox.
	ErrFetch = errors.New("fetching emails failed")
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Summary is one fetched mailbox entry, newest first.
type Summary struct {
	From     string
	Subject  string
	Date     time.Time
	Body     string
	Category string
}

// FetchCriteria bounds a mailbox read.
type FetchCriteria struct {
	Limit int
}

// SMTPConfig is the default outgoing endpoint. A session may override it.
type SMTPConfig struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"-"`
}

// IMAPConfig is the default incoming endpoint.
type IMAPConfig struct {
	Server    string `mapstructure:"server"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"-"`
	MaxEmails int    `mapstructure:"max-emails"`
}

func (c SMTPConfig) withOverride(creds *session.Credentials) SMTPConfig {
	if creds == nil {
		return c
	}
	if creds.SMTPServer != "" {
		c.Server = creds.SMTPServer
	}
	if creds.SMTPPort != 0 {
		c.Port = creds.SMTPPort
	}
	if creds.SMTPUsername != "" {
		c.Username = creds.SMTPUsername
	}
	if creds.SMTPPassword != "" {
		c.Password = creds.SMTPPassword
	}
	return c
}

func (c IMAPConfig) withOverride(creds *session.Credentials) IMAPConfig {
	if creds == nil {
		return c
	}
	if creds.IMAPServer != "" {
		c.Server = creds.IMAPServer
	}
	if creds.IMAPPort != 0 {
		c.Port = creds.IMAPPort
	}
	if creds.IMAPUsername != "" {
		c.Username = creds.IMAPUsername
	}
	if creds.IMAPPassword != "" {
		c.Password = creds.IMAPPassword
	}
	return c
}
