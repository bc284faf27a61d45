package twilio

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps the Twilio WhatsApp operations used for reminders and the
// inbound webhook.
type Client struct {
	client       *twilio.RestClient
	authToken    string
	fromWhatsApp string
	logger       *logrus.Logger
}

// New creates a Twilio client bound to the configured WhatsApp sender number.
func New(accountSID, authToken, fromWhatsApp string, logger *logrus.Logger) *Client {
	return &Client{
		client:       twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		authToken:    authToken,
		fromWhatsApp: fromWhatsApp,
		logger:       logger,
	}
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio's API.
func (c *Client) SendWhatsAppMessage(to, body string) error {
	if c.client == nil {
		return fmt.Errorf("twilio client not initialised")
	}

	sender := normalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("twilio sender WhatsApp number is not configured")
	}

	recipient := normalizeWhatsAppAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	c.logger.WithFields(logrus.Fields{"to": recipient, "sid": sid}).Info("twilio: message sent")
	return nil
}

// ValidateWebhook checks the X-Twilio-Signature of an inbound request posted
// to webhookURL.
func (c *Client) ValidateWebhook(webhookURL string, form url.Values, signature string) bool {
	if c.authToken == "" || signature == "" {
		return false
	}
	validator := twclient.NewRequestValidator(c.authToken)
	return validator.Validate(webhookURL, DecodeForm(form), signature)
}

// DecodeForm flattens POST form data into the map shape Twilio signs.
func DecodeForm(values url.Values) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if len(value) > 0 {
			result[key] = value[0]
		}
	}
	return result
}

// SessionID maps a WhatsApp sender address to its chat session.
func SessionID(from string) string {
	number := strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
	if number == "" {
		return ""
	}
	return "whatsapp:" + number
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
