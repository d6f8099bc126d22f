package team

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// SMTPMailer - invitation email over SMTP
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendInvitation - no SMTP host configured means the link is only logged
func (m *SMTPMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	if m.host == "" {
		log.Warnf("⚠️ SMTP not configured, invitation link for %s: %s", inv.Email, inv.Link)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", inv.Email)
	msg.SetHeader("Subject", fmt.Sprintf("You're invited to join %s on ReelCraft", inv.TeamName))
	msg.SetBody("text/html", fmt.Sprintf(
		`<p>You've been invited to join <b>%s</b> as <b>%s</b>.</p>`+
			`<p><a href="%s" style="display:inline-block;padding:10px 20px;text-decoration:none;border-radius:5px;background-color:#111;color:#fff;">Accept invitation</a></p>`+
			`<p>This link expires on %s.</p>`,
		html.EscapeString(inv.TeamName), inv.Role, inv.Link, inv.ExpiresAt.Format("January 2, 2006")))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	return dialer.DialAndSend(msg)
}
