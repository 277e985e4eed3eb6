package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds SMS credentials and the sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioSender delivers alerts as SMS messages through the Twilio REST
// API. The contact address is an E.164 phone number.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio sender: missing account credentials")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio sender: missing from number")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: cfg.FromNumber}, nil
}

func (s *TwilioSender) Name() string { return "twilio_sms" }

func (s *TwilioSender) Send(ctx context.Context, address, content string) (bool, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(address)
	params.SetFrom(s.from)
	params.SetBody(content)

	msg, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return false, fmt.Errorf("twilio create message: %w", err)
	}
	if msg.Status != nil && (*msg.Status == "failed" || *msg.Status == "undelivered") {
		return false, nil
	}
	return true, nil
}
