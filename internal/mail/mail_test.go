package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLinks(t *testing.T) {
	require.Equal(t,
		"https://app.example.com/auth/verify-email?email=a%2Bb%40c.com&token=abc",
		VerificationLink("https://app.example.com/", "abc", "a+b@c.com"))
	require.Equal(t,
		"https://app.example.com/auth/reset-password?token=abc",
		ResetLink("https://app.example.com", "abc"))
}

func TestVerificationMessageEscapesName(t *testing.T) {
	m, err := VerificationMessage("a@b.c", "<script>", "https://app/x?token=1&email=a")
	require.NoError(t, err)
	require.Equal(t, "a@b.c", m.To)
	require.Equal(t, verificationSubject, m.Subject)
	require.NotContains(t, m.HTML, "<script>")
	require.Contains(t, m.HTML, "24 hours")
}

func TestPasswordResetMessageFallsBackToAddress(t *testing.T) {
	m, err := PasswordResetMessage("a@b.c", "", "https://app/reset")
	require.NoError(t, err)
	require.Contains(t, m.HTML, "Hello a@b.c")
	require.Contains(t, m.HTML, "1 hour")
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "a@b.c", logs.All()[0].ContextMap()["to"])
}
