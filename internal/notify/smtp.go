package notify

import (
	"fmt"
	"net/smtp"
)

type SMTPSender struct {
	from     string
	fromName string
	host     string
	port     string
	user     string
	pass     string
}

func NewSMTPSender(fromEmail, fromName, host, port, user, pass string) *SMTPSender {
	return &SMTPSender{
		from:     fromEmail,
		fromName: fromName,
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
	}
}

func (s *SMTPSender) Send(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.user != "" && s.pass != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{job.To}, []byte(message))
}
