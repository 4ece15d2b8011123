// Package mail delivers transactional email: OTP codes synchronously in
// the auth flows, appointment notices via the outbox worker.
package mail

import (
	"fmt"
	"net/smtp"
)

// Sender is the delivery seam; the outbox worker and the auth handlers
// depend on it so tests can substitute a fake.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	if from == "" {
		from = user
	}
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := []byte(
		"From: " + s.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{to}, msg)
}
