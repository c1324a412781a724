package effects

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

// EmailConfig holds SMTP connection settings for the email handler.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// sendFunc matches smtp.SendMail; injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailHandler sends outbound email for "email" actions. Action config:
// "to" (literal address) or "toField" (metadata key holding the address),
// "subject", and "body", the latter two supporting {{key}} placeholders.
type EmailHandler struct {
	cfg  EmailConfig
	send sendFunc
}

// NewEmailHandler creates a handler that delivers via smtp.SendMail.
func NewEmailHandler(cfg EmailConfig) *EmailHandler {
	return &EmailHandler{cfg: cfg, send: smtp.SendMail}
}

// Execute implements engine.ActionHandler.
func (h *EmailHandler) Execute(ctx context.Context, action model.WorkflowAction, instance engine.InstanceView) error {
	to := configString(action.Config, "to")
	if to == "" {
		toField := configString(action.Config, "toField")
		if toField != "" {
			if v, ok := instance.MetadataValue(toField); ok {
				to, _ = v.(string)
			}
		}
	}
	if to == "" {
		return fmt.Errorf("email action %s has no recipient: set config.to or config.toField", action.ID)
	}

	subject := renderTemplate(configString(action.Config, "subject"), instance)
	body := renderTemplate(configString(action.Config, "body"), instance)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", h.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	// smtp.SendMail has no context support; the dispatcher's timeout bounds
	// the whole dispatch, and delivery is checked for cancellation up front.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email delivery cancelled: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)
	var auth smtp.Auth
	if h.cfg.Username != "" {
		auth = smtp.PlainAuth("", h.cfg.Username, h.cfg.Password, h.cfg.Host)
	}

	if err := h.send(addr, auth, h.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	slog.Info("email sent",
		"to", to,
		"subject", subject,
		"instance_id", instance.InstanceID(),
	)
	return nil
}
