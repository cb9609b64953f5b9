package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNotifierDisabledChannels(t *testing.T) {
	n := NewChannelNotifier(MailConfig{}, SMSConfig{})

	assert.ErrorIs(t, n.SendEmail(context.Background(), "a@b.co", "OTP", "123456"), ErrChannelDisabled)
	assert.ErrorIs(t, n.SendSMS(context.Background(), "9876543210", "123456"), ErrChannelDisabled)
}

func TestChannelNotifierInternationalNumber(t *testing.T) {
	n := NewChannelNotifier(MailConfig{}, SMSConfig{CountryCode: "+91"})

	assert.Equal(t, "+919876543210", n.international("9876543210"))
	assert.Equal(t, "+15550001111", n.international("+15550001111"))
}
