package letterpress

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string // optional HTML alternative
}

// Mailer delivers email on behalf of the site. Implementations must be safe
// for use from concurrent requests. Delivery is best-effort from the
// application's point of view: registration and authoring never roll back
// because a send failed.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer delivers mail through an implicit-SSL SMTP endpoint.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from MailConfig. The configured username is
// used as the From address.
func NewSMTPMailer(cfg MailConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = true
	return &SMTPMailer{dialer: d, from: cfg.Username}
}

func (m *SMTPMailer) Send(msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// discardMailer is installed when no mail host is configured.
type discardMailer struct{}

func (discardMailer) Send(Message) error { return nil }

// personalize substitutes the {name} placeholder authors may use in
// bulk-mail bodies.
func personalize(body, name string) string {
	return strings.ReplaceAll(body, "{name}", name)
}

// welcomeMessage is the mail sent right after a successful subscription.
func welcomeMessage(cfg SiteConfig, first, email string) Message {
	return Message{
		To:      email,
		Subject: fmt.Sprintf("Hi, it's %s", cfg.Author),
		Text:    fmt.Sprintf("Hello %s,\nThanks for subscribing!\nBest,\n%s", first, cfg.Author),
	}
}
