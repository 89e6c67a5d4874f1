package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/wneessen/go-mail"
)

// Mailer sends transactional notifications over SMTP.
type Mailer struct {
	cfg config.MailConfig
}

// NewMailer creates a new mailer
func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether SMTP delivery is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.SMTPHost != "" && m.cfg.From != "" && m.cfg.LeadsTo != ""
}

// SendLeadNotification emails the sales inbox about a newly captured lead.
func (m *Mailer) SendLeadNotification(ctx context.Context, lead *domain.Lead) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer is not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.cfg.LeadsTo); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(fmt.Sprintf("New lead: %s", lead.Name))
	msg.SetBodyString(mail.TypeTextPlain, leadBody(lead))

	opts := []mail.Option{
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.SMTPUser),
		mail.WithPassword(m.cfg.SMTPPassword),
	}
	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send lead notification: %w", err)
	}
	return nil
}

func leadBody(lead *domain.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new lead was captured from the chat widget.\n\n")
	fmt.Fprintf(&b, "Name:    %s\n", lead.Name)
	fmt.Fprintf(&b, "Email:   %s\n", lead.Email)
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", lead.Phone)
	}
	if lead.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", lead.Company)
	}
	if lead.Source != "" {
		fmt.Fprintf(&b, "Source:  %s\n", lead.Source)
	}
	if lead.Message != "" {
		fmt.Fprintf(&b, "\nMessage:\n%s\n", lead.Message)
	}
	return b.String()
}
