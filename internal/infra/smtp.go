package infra

import (
	"fmt"
	"net/smtp"
	"strconv"

	"minisuper/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends the cash-close reports. A zero SMTP host disables it.
type Mailer struct {
	servidor  string
	auth      smtp.Auth
	remitente string
	host      string
}

func NewMailer(cfg *config.Config) *Mailer {
	remitente := cfg.SMTPUser
	if cfg.EmpresaNombre != "" && cfg.SMTPUser != "" {
		remitente = fmt.Sprintf("%s <%s>", cfg.EmpresaNombre, cfg.SMTPUser)
	}
	return &Mailer{
		servidor:  cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		auth:      smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost),
		remitente: remitente,
		host:      cfg.SMTPHost,
	}
}

// Configurado reports whether an SMTP host is set.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

// SendAdjunto sends a plain-text email, attaching the file at path when set.
func (m *Mailer) SendAdjunto(to, subject, body, path string) error {
	if !m.Configurado() {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}
	e := email.NewEmail()
	e.From = m.remitente
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	if path != "" {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("mailer: adjuntar %s: %w", path, err)
		}
	}
	return e.Send(m.servidor, m.auth)
}
