package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"braindump/application/ports"
	apperrors "braindump/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1"

// GmailAPIClient sends and drafts mail through the Gmail v1 API. Messages are
// assembled as RFC 2822 text and submitted base64url-encoded.
type GmailAPIClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewGmailAPIClient creates a new GmailAPIClient.
func NewGmailAPIClient(logger *zap.Logger) *GmailAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GmailAPIClient{
		client: resty.New().SetTimeout(30 * time.Second),
		logger: logger,
	}
}

// encodeMessage renders the message as RFC 2822 headers plus body and
// base64url-encodes it the way the Gmail API expects raw messages.
func encodeMessage(msg ports.MailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\r\n", strings.Join(msg.Bcc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

func (c *GmailAPIClient) post(ctx context.Context, accessToken, path string, body interface{}) (map[string]interface{}, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(gmailAPIBase + path)
	if err != nil {
		return nil, apperrors.NewProviderError("gmail request failed", err)
	}

	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		c.logger.Warn("Gmail rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, providerHTTPError("gmail", resp.StatusCode(), resp.Body())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, apperrors.NewProviderError("undecodable gmail response", err)
	}
	return result, nil
}

// Send submits the message immediately. The response carries the sent
// message's id and threadId.
func (c *GmailAPIClient) Send(ctx context.Context, accessToken string, msg ports.MailMessage) (map[string]interface{}, error) {
	body := map[string]interface{}{"raw": encodeMessage(msg)}
	return c.post(ctx, accessToken, "/users/me/messages/send", body)
}

// CreateDraft stores the message as a draft. The response carries the draft
// id plus a nested message object with id and threadId.
func (c *GmailAPIClient) CreateDraft(ctx context.Context, accessToken string, msg ports.MailMessage) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"message": map[string]interface{}{"raw": encodeMessage(msg)},
	}
	return c.post(ctx, accessToken, "/users/me/drafts", body)
}
