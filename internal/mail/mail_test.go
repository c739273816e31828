package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/config"
)

func TestNewSenderFallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := NewSender(config.MailConfig{}, logger)
	require.IsType(t, &LogSender{}, s)

	require.NoError(t, s.Send(context.Background(), "ada@example.com", "Reset", "http://x/reset?token=abc"))
	assert.Contains(t, buf.String(), "ada@example.com")
}

func TestNewSenderUsesSMTPWhenConfigured(t *testing.T) {
	s := NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "shop@example.com"}, slog.Default())
	assert.IsType(t, &SMTPSender{}, s)
}

func TestSMTPSenderRejectsBadFrom(t *testing.T) {
	s := &SMTPSender{cfg: config.MailConfig{Host: "smtp.example.com", Port: 587, From: "not an address"}, logger: slog.Default()}
	err := s.Send(context.Background(), "ada@example.com", "Reset", "body")
	assert.Error(t, err)
}
