package services

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

var ErrChannelDisabled = errors.New("notification channel not configured")

// Notifier delivers one-time codes to users.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, phone, body string) error
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type SMSConfig struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string
}

// ChannelNotifier sends email over SMTP and SMS through Twilio. A channel
// whose configuration is missing reports ErrChannelDisabled.
type ChannelNotifier struct {
	sender      string
	dialer      *gomail.Dialer
	sms         *twilio.RestClient
	fromNumber  string
	countryCode string
}

func NewChannelNotifier(mail MailConfig, sms SMSConfig) *ChannelNotifier {
	n := &ChannelNotifier{
		sender:      mail.Sender,
		fromNumber:  sms.FromNumber,
		countryCode: sms.CountryCode,
	}
	if n.sender == "" {
		n.sender = mail.Username
	}
	if mail.Host != "" && n.sender != "" {
		n.dialer = gomail.NewDialer(mail.Host, mail.Port, mail.Username, mail.Password)
	}
	if sms.AccountSID != "" && sms.AuthToken != "" && sms.FromNumber != "" {
		n.sms = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: sms.AccountSID,
			Password: sms.AuthToken,
		})
	}
	return n
}

func (n *ChannelNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if n.dialer == nil {
		return ErrChannelDisabled
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.sender)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return n.dialer.DialAndSend(m)
}

func (n *ChannelNotifier) SendSMS(ctx context.Context, phone, body string) error {
	if n.sms == nil {
		return ErrChannelDisabled
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.international(phone))
	params.SetFrom(n.fromNumber)
	params.SetBody(body)
	_, err := n.sms.Api.CreateMessage(params)
	return err
}

func (n *ChannelNotifier) international(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return n.countryCode + phone
}
