package services

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/platform/sendgrid"
)

// Mailer delivers plain-text email. Formatting beyond subject and body lives elsewhere.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendgridMailer struct {
	client sendgrid.Client
}

func NewSendGridMailer(client sendgrid.Client) Mailer {
	return &sendgridMailer{client: client}
}

func (m *sendgridMailer) Send(ctx context.Context, to, subject, body string) error {
	_, err := m.client.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: to}},
		Subject:    subject,
		Text:       body,
		Categories: []string{"mediaforge"},
	})
	return err
}

type logMailer struct {
	log *logger.Logger
}

// NewLogMailer is used when no mail transport is configured.
func NewLogMailer(baseLog *logger.Logger) Mailer {
	return &logMailer{log: baseLog.With("service", "LogMailer")}
}

func (m *logMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info("email not sent (no transport configured)", "email", to, "subject", subject)
	return nil
}

// Notifier sends the pipeline's two kinds of mail: operator alerts and requester updates.
// Delivery failures are logged and never fail the caller.
type Notifier interface {
	TranscodeFailed(ctx context.Context, m *types.Media, details string)
	CaptionReviewed(ctx context.Context, m *types.Media, c *types.MediaCaption)
}

type notifier struct {
	log        *logger.Logger
	mailer     Mailer
	adminEmail string
}

func NewNotifier(baseLog *logger.Logger, mailer Mailer, adminEmail string) Notifier {
	return &notifier{
		log:        baseLog.With("service", "Notifier"),
		mailer:     mailer,
		adminEmail: strings.TrimSpace(adminEmail),
	}
}

func (n *notifier) TranscodeFailed(ctx context.Context, m *types.Media, details string) {
	if m == nil {
		return
	}
	if n.adminEmail == "" {
		n.log.Warn("transcode failure not emailed (ADMIN_EMAIL unset)", "media_id", m.ID)
		return
	}
	subject := fmt.Sprintf("Transcode failed for '%s'", m.Title)
	body := fmt.Sprintf("Media ID: %s\nTitle: %s\nError: %s\n", m.ID, m.Title, details)
	if err := n.mailer.Send(ctx, n.adminEmail, subject, body); err != nil {
		n.log.Warn("operator notification failed", "media_id", m.ID, "error", err)
	}
}

func (n *notifier) CaptionReviewed(ctx context.Context, m *types.Media, c *types.MediaCaption) {
	if m == nil || c == nil {
		return
	}
	to := strings.TrimSpace(m.OwnerEmail)
	if to == "" {
		n.log.Warn("caption decision not emailed (owner has no email)", "media_id", m.ID, "caption_id", c.ID)
		return
	}
	subject := fmt.Sprintf("Update on your caption request for '%s'", m.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "Your caption request for '%s' was %s", m.Title, c.Status)
	if c.ApprovedBy != "" {
		fmt.Fprintf(&b, " by %s", c.ApprovedBy)
	}
	b.WriteString(".\n")
	if strings.TrimSpace(c.Reason) != "" {
		fmt.Fprintf(&b, "\nReason: %s\n", c.Reason)
	}
	if err := n.mailer.Send(ctx, to, subject, b.String()); err != nil {
		n.log.Warn("requester notification failed", "media_id", m.ID, "caption_id", c.ID, "error", err)
	}
}
