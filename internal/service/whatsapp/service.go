// Package whatsapp delivers owner notifications through the WhatsApp Cloud API.
package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	client "github.com/kmledger/kmledger/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// WeeklySummarizer renders the weekly summary text of an owner.
type WeeklySummarizer interface {
	WeeklySummary(ctx context.Context, ownerID string, now time.Time) (string, error)
}

// Notifier sends summaries, alert digests and operator messages.
type Notifier struct {
	client  client.Client
	summary WeeklySummarizer
	logger  *zap.Logger
}

// NewNotifier wires a new notifier instance.
func NewNotifier(c client.Client, summary WeeklySummarizer, logger *zap.Logger) *Notifier {
	n := &Notifier{client: c, summary: summary, logger: logger}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

// Reachable reports whether owner accepts WhatsApp notifications.
func Reachable(owner models.Owner) bool {
	return owner.Preferences.NotifyWhatsApp && owner.Phone != ""
}

// SendOutbound lets operators push a message to any number.
func (n *Notifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if strings.TrimSpace(req.To) == "" {
		return errs.Validation("to", "is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errs.Validation("message", "is required")
	}
	return n.send(ctx, req.To, req.Message, req.PreviewURL)
}

// SendWeeklySummary sends the summary of the seven days ending at now.
// Owners who opted out are skipped and false is returned.
func (n *Notifier) SendWeeklySummary(ctx context.Context, owner models.Owner, now time.Time) (bool, error) {
	if !Reachable(owner) {
		return false, nil
	}
	text, err := n.summary.WeeklySummary(ctx, owner.ID, now)
	if err != nil {
		return false, fmt.Errorf("build weekly summary: %w", err)
	}
	if err := n.send(ctx, owner.Phone, text, false); err != nil {
		return false, err
	}
	return true, nil
}

// NotifyAlerts sends one digest of freshly created alerts. Informational
// alerts alone do not trigger a message.
func (n *Notifier) NotifyAlerts(ctx context.Context, owner models.Owner, alerts []models.Alert) (bool, error) {
	if !Reachable(owner) {
		return false, nil
	}
	var b strings.Builder
	count := 0
	for _, a := range alerts {
		if a.Severity == models.SeverityInfo {
			continue
		}
		if count == 0 {
			b.WriteString("Novos alertas:")
		}
		fmt.Fprintf(&b, "\n• %s: %s", a.Title, a.Message)
		count++
	}
	if count == 0 {
		return false, nil
	}
	if err := n.send(ctx, owner.Phone, b.String(), false); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Notifier) send(ctx context.Context, to, body string, preview bool) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := n.client.SendText(ctxWithTimeout, client.TextMessage{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		n.logger.Error("failed to send whatsapp message", zap.Error(err))
		return fmt.Errorf("send whatsapp message: %w", err)
	}

	n.logger.Info("whatsapp message sent", zap.String("message_id", resp.MessageID()))
	return nil
}
