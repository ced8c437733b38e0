package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"wayfare/config"
	"wayfare/models"
)

// Mailer sends transactional mail over SMTP. With no host configured it logs
// and drops the message, which is what dev environments want.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.MailFrom,
	}
}

func (m *Mailer) send(to, subject, body string) error {
	if m.host == "" {
		slog.Info("smtp not configured, dropping mail", "to", to, "subject", subject)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.user, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func firstName(u *models.User) string {
	if i := strings.IndexByte(u.Name, ' '); i > 0 {
		return u.Name[:i]
	}
	return u.Name
}

// SendWelcome greets a fresh signup.
func (m *Mailer) SendWelcome(user *models.User, accountURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Wayfare, we're glad to have you!\nManage your account here: %s\n",
		firstName(user), accountURL)
	return m.send(user.Email, "Welcome to Wayfare!", body)
}

// SendPasswordReset mails the reset link; the token inside is valid for ten
// minutes.
func (m *Mailer) SendPasswordReset(user *models.User, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a new one here: %s\nIf you didn't request this, ignore this email.\n",
		firstName(user), resetURL)
	return m.send(user.Email, "Your password reset token (valid for 10 minutes)", body)
}

// SendBookingConfirmation acknowledges a paid booking.
func (m *Mailer) SendBookingConfirmation(user *models.User, tourName string, price float64) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking for %q ($%.2f) is confirmed. See you out there!\n",
		firstName(user), tourName, price)
	return m.send(user.Email, "Your Wayfare booking is confirmed", body)
}
