package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	client "github.com/kmledger/kmledger/pkg/clients/whatsapp"
)

type recordingClient struct {
	sent []client.TextMessage
	err  error
}

func (c *recordingClient) SendText(_ context.Context, msg client.TextMessage) (*client.SendResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, msg)
	return &client.SendResponse{}, nil
}

type staticSummary string

func (s staticSummary) WeeklySummary(context.Context, string, time.Time) (string, error) {
	return string(s), nil
}

var reachable = models.Owner{ID: "o1", Phone: "5511999990000", Preferences: models.Preferences{NotifyWhatsApp: true}}

func TestSendWeeklySummary(t *testing.T) {
	c := &recordingClient{}
	n := NewNotifier(c, staticSummary("Resumo"), nil)

	sent, err := n.SendWeeklySummary(context.Background(), reachable, time.Now())
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, c.sent, 1)
	assert.Equal(t, "Resumo", c.sent[0].Body)

	sent, err = n.SendWeeklySummary(context.Background(), models.Owner{ID: "o2", Phone: "1"}, time.Now())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, c.sent, 1)
}

func TestNotifyAlerts_SkipsInfoOnly(t *testing.T) {
	c := &recordingClient{}
	n := NewNotifier(c, nil, nil)
	ctx := context.Background()

	sent, err := n.NotifyAlerts(ctx, reachable, []models.Alert{{Title: "a", Severity: models.SeverityInfo}})
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = n.NotifyAlerts(ctx, reachable, []models.Alert{
		{Title: "Despesas elevadas", Message: "m1", Severity: models.SeverityWarning},
		{Title: "x", Severity: models.SeverityInfo},
	})
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].Body, "Despesas elevadas: m1")
	assert.NotContains(t, c.sent[0].Body, "x:")
}

func TestSendOutbound(t *testing.T) {
	c := &recordingClient{err: errors.New("boom")}
	n := NewNotifier(c, nil, nil)

	err := n.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "", Message: "hi"})
	assert.True(t, errs.Is(err, errs.KindValidation))

	err = n.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	assert.Error(t, err)
}
