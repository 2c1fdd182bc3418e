package twilio

import (
	"context"
	"fmt"
	"strings"

	"holanu-server/internal/observability"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client sends WhatsApp messages through the Twilio messaging API
type Client struct {
	client *twilio.RestClient
	from   string
	logger *observability.Logger
}

// NewClient creates a Twilio client. from is the WhatsApp-enabled sender
// number in E.164 form.
func NewClient(accountSID, authToken, from string, logger *observability.Logger) *Client {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &Client{
		client: client,
		from:   from,
		logger: logger,
	}
}

// SendWhatsApp delivers body to the given E.164 number and returns Twilio's
// message SID for delivery-receipt correlation.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "whatsapp_to", Value: to},
	)

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(whatsAppAddress(c.from))
	params.SetTo(whatsAppAddress(to))
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		c.logger.Error(ctx, "failed to send whatsapp message", err)
		return "", fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}

	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "message_sid", Value: sid},
	), "whatsapp message sent")
	return sid, nil
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
