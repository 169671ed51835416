package providers

import (
	"context"
	"encoding/json"
	"time"

	"braindump/application/ports"
	apperrors "braindump/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const graphAPIBase = "https://graph.microsoft.com/v1.0"

// MicrosoftGraphClient handles Outlook mail and calendar through Microsoft
// Graph.
type MicrosoftGraphClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewMicrosoftGraphClient creates a new MicrosoftGraphClient.
func NewMicrosoftGraphClient(logger *zap.Logger) *MicrosoftGraphClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MicrosoftGraphClient{
		client: resty.New().SetTimeout(20 * time.Second),
		logger: logger,
	}
}

func graphRecipients(emails []string) []map[string]interface{} {
	recipients := make([]map[string]interface{}, 0, len(emails))
	for _, email := range emails {
		recipients = append(recipients, map[string]interface{}{
			"emailAddress": map[string]string{"address": email},
		})
	}
	return recipients
}

// SendMail posts to /me/sendMail. Graph answers 202 with an empty body, so a
// synthetic status document is returned.
func (c *MicrosoftGraphClient) SendMail(ctx context.Context, accessToken string, msg ports.MailMessage) (map[string]interface{}, error) {
	message := map[string]interface{}{
		"subject":      msg.Subject,
		"body":         map[string]string{"contentType": "Text", "content": msg.Body},
		"toRecipients": graphRecipients(msg.To),
	}
	if len(msg.Cc) > 0 {
		message["ccRecipients"] = graphRecipients(msg.Cc)
	}
	if len(msg.Bcc) > 0 {
		message["bccRecipients"] = graphRecipients(msg.Bcc)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{"message": message}).
		Post(graphAPIBase + "/me/sendMail")
	if err != nil {
		return nil, apperrors.NewProviderError("microsoft graph request failed", err)
	}

	status := resp.StatusCode()
	if status != 200 && status != 201 && status != 202 {
		c.logger.Warn("Microsoft Graph rejected sendMail", zap.Int("status", status))
		return nil, providerHTTPError("microsoft graph", status, resp.Body())
	}

	return map[string]interface{}{"status": "sent"}, nil
}

// CreateEvent posts to /me/events and returns the created event, including
// its id and webLink.
func (c *MicrosoftGraphClient) CreateEvent(ctx context.Context, accessToken string, event ports.EventDetails) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"subject": event.Title,
		"start":   map[string]string{"dateTime": event.StartDatetime},
	}
	if event.EndDatetime != "" {
		body["end"] = map[string]string{"dateTime": event.EndDatetime}
	}
	if event.Description != "" {
		body["body"] = map[string]string{"contentType": "Text", "content": event.Description}
	}
	if event.Location != "" {
		body["location"] = map[string]string{"displayName": event.Location}
	}
	if len(event.Attendees) > 0 {
		attendees := make([]map[string]interface{}, 0, len(event.Attendees))
		for _, email := range event.Attendees {
			attendees = append(attendees, map[string]interface{}{
				"emailAddress": map[string]string{"address": email},
				"type":         "required",
			})
		}
		body["attendees"] = attendees
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(graphAPIBase + "/me/events")
	if err != nil {
		return nil, apperrors.NewProviderError("microsoft graph request failed", err)
	}

	status := resp.StatusCode()
	if status != 200 && status != 201 {
		c.logger.Warn("Microsoft Graph rejected event", zap.Int("status", status))
		return nil, providerHTTPError("microsoft graph", status, resp.Body())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, apperrors.NewProviderError("undecodable microsoft graph response", err)
	}
	return result, nil
}
