// internal/workers/notifications_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
)

// expiryAlertWindow is how far ahead the expiry check looks.
const expiryAlertWindow = 30 * 24 * time.Hour

// NotificationProcessor handles email notifications
type NotificationProcessor struct {
	config    *config.Config
	medicines ports.MedicineRepository
	logger    *slog.Logger
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(cfg *config.Config, medicines ports.MedicineRepository, logger *slog.Logger) *NotificationProcessor {
	return &NotificationProcessor{
		config:    cfg,
		medicines: medicines,
		logger:    logger.With(slog.String("processor", "notification")),
	}
}

// EmailPayload describes a single outbound email task.
type EmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// SendEmail sends email notifications
func (p *NotificationProcessor) SendEmail(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if len(payload.To) == 0 {
		return fmt.Errorf("email payload has no recipients")
	}

	p.logger.InfoContext(ctx, "sending email",
		slog.Int("recipients", len(payload.To)),
		slog.String("subject", payload.Subject))

	return p.deliver(ctx, payload.To, payload.Subject, payload.Body)
}

// CheckExpiringStock scans the catalog for medicines expiring soon and
// emails a summary to the configured alert recipients.
func (p *NotificationProcessor) CheckExpiringStock(ctx context.Context, t *asynq.Task) error {
	now := time.Now()

	medicines, _, err := p.medicines.FindAll(ctx, ports.MedicineFilter{Limit: 100_000})
	if err != nil {
		return fmt.Errorf("failed to load medicines for expiry check: %w", err)
	}

	var lines []string
	for _, m := range medicines {
		if m.Stock == 0 || m.IsExpired(now) || !m.ExpiresWithin(now, expiryAlertWindow) {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %d units, expires %s",
			m.Name, m.ManufacturerName, m.Stock, m.ExpiryDate.Format("2006-01-02")))
	}

	if len(lines) == 0 {
		p.logger.InfoContext(ctx, "no medicines expiring soon")
		return nil
	}

	p.logger.InfoContext(ctx, "found medicines expiring soon",
		slog.Int("count", len(lines)))

	if len(p.config.Email.AlertRecipients) == 0 {
		p.logger.WarnContext(ctx, "no alert recipients configured, skipping email")
		return nil
	}

	subject := fmt.Sprintf("Expiry alert: %d medicines expire within 30 days", len(lines))
	body := fmt.Sprintf(
		"The following medicines still have stock on hand and expire before %s:\n\n%s\n",
		now.Add(expiryAlertWindow).Format("2006-01-02"),
		strings.Join(lines, "\n"),
	)

	return p.deliver(ctx, p.config.Email.AlertRecipients, subject, body)
}

func (p *NotificationProcessor) deliver(ctx context.Context, to []string, subject, body string) error {
	// In development, just log the email
	if p.config.App.Environment == "development" {
		p.logger.InfoContext(ctx, "email would be sent",
			slog.String("to", strings.Join(to, ", ")),
			slog.String("subject", subject),
			slog.String("body", body))
		return nil
	}

	from := p.config.Email.FromAddress
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, strings.Join(to, ", "), subject, body,
	))

	var auth smtp.Auth
	if p.config.Email.SMTPUsername != "" {
		auth = smtp.PlainAuth("", p.config.Email.SMTPUsername, p.config.Email.SMTPPassword, p.config.Email.SMTPHost)
	}
	addr := p.config.Email.SMTPHost + ":" + p.config.Email.SMTPPort

	if err := smtp.SendMail(addr, auth, from, to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	p.logger.InfoContext(ctx, "email sent successfully")
	return nil
}
