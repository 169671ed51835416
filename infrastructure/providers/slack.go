package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "braindump/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const slackAPIBase = "https://slack.com/api"

// SlackAPIClient posts messages through the Slack Web API. Slack reports
// failures inside 200 responses via ok=false, so both layers are checked.
type SlackAPIClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewSlackAPIClient creates a new SlackAPIClient.
func NewSlackAPIClient(logger *zap.Logger) *SlackAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackAPIClient{
		client: resty.New().SetTimeout(15 * time.Second),
		logger: logger,
	}
}

func (c *SlackAPIClient) call(ctx context.Context, accessToken, method string, payload map[string]interface{}) (map[string]interface{}, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(payload).
		Post(fmt.Sprintf("%s/%s", slackAPIBase, method))
	if err != nil {
		return nil, apperrors.NewProviderError("slack request failed", err)
	}

	if resp.StatusCode() != 200 {
		c.logger.Warn("Slack API returned non-200",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, apperrors.NewProviderError(fmt.Sprintf("slack: HTTP %d", resp.StatusCode()), nil)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, apperrors.NewProviderError("undecodable slack response", err)
	}
	if ok, _ := data["ok"].(bool); !ok {
		errCode, _ := data["error"].(string)
		if errCode == "" {
			errCode = "unknown_error"
		}
		return nil, apperrors.NewProviderError(fmt.Sprintf("slack: %s", errCode), nil)
	}
	return data, nil
}

// PostMessage sends text to a channel or DM conversation.
func (c *SlackAPIClient) PostMessage(ctx context.Context, accessToken, channelID, text string) (map[string]interface{}, error) {
	return c.call(ctx, accessToken, "chat.postMessage", map[string]interface{}{
		"channel": channelID,
		"text":    text,
	})
}

// OpenDM opens (or reopens) a direct-message conversation with a user and
// returns its channel id.
func (c *SlackAPIClient) OpenDM(ctx context.Context, accessToken, slackUserID string) (string, error) {
	data, err := c.call(ctx, accessToken, "conversations.open", map[string]interface{}{
		"users": slackUserID,
	})
	if err != nil {
		return "", err
	}

	channel, _ := data["channel"].(map[string]interface{})
	channelID, _ := channel["id"].(string)
	return channelID, nil
}
