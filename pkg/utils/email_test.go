package utils

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailerSendLoginOTP(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewMailer(MailConfig{Host: "smtp.example.com", Port: 2525, From: "noreply@example.com", AppName: "RescueLink"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, m.SendLoginOTP(context.Background(), "medic@example.com", "042917", 5))

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"medic@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: RescueLink - Your Login Code\r\n")
	assert.Contains(t, string(gotMsg), "042917")
	assert.Contains(t, string(gotMsg), "expires in 5 minutes")
}

func TestMailerErrors(t *testing.T) {
	m := NewMailer(MailConfig{})
	assert.Error(t, m.SendLoginOTP(context.Background(), "a@b.com", "000000", 5))

	m = NewMailer(MailConfig{Host: "h", Port: 25, From: "f@x.com", Username: "u", Password: "p"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	err := m.SendLoginOTP(context.Background(), "a@b.com", "000000", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendLoginOTP(ctx, "a@b.com", "000000", 5), context.Canceled)
}
