package mail

import (
	"fmt"
	"net/smtp"

	"gearshed/internal/config"
)

// Sender delivers a plain-text message to one recipient.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender talks to a plain SMTP relay without auth, which is what
// local dev (mailpit) and the in-cluster relay both speak.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		addr: cfg.SMTP.Host + ":" + cfg.SMTP.Port,
		from: cfg.SMTP.From,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}
