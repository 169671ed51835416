package dispatch

import (
	"context"
	"strings"

	"braindump/application/ports"
	"braindump/domain/node"
	apperrors "braindump/pkg/errors"
)

// resolveChannelID picks the destination channel: an explicit id wins, then
// anything that already looks like a channel id or '#channel' literal, then a
// normalized name match against the user's target map.
func resolveChannelID(channelID, channelName string, targets ports.SlackTargets) string {
	if channelID != "" {
		return channelID
	}
	if channelName == "" {
		return ""
	}
	if (strings.HasPrefix(channelName, "C") || strings.HasPrefix(channelName, "G")) && len(channelName) >= 8 {
		return channelName
	}
	if strings.HasPrefix(channelName, "#") {
		return channelName
	}
	normalized := normalizeName(channelName)
	for name, id := range targets.Channels {
		if normalizeName(name) == normalized {
			return id
		}
	}
	return ""
}

// resolveSlackUserID does the same for direct-message recipients.
func resolveSlackUserID(userID, userName string, targets ports.SlackTargets) string {
	if userID != "" {
		return userID
	}
	if userName == "" {
		return ""
	}
	if strings.HasPrefix(userName, "U") && len(userName) >= 8 {
		return userName
	}
	normalized := normalizeName(userName)
	for name, id := range targets.Users {
		if normalizeName(name) == normalized {
			return id
		}
	}
	return ""
}

func (d *Dispatcher) executeSlack(ctx context.Context, token, userID string, n *node.Node) (map[string]interface{}, error) {
	payload := n.SlackMessage
	if payload == nil {
		return nil, apperrors.NewMissingFieldError("slack_message payload missing")
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		return nil, apperrors.NewMissingFieldError("missing Slack message text")
	}

	targets := d.slackTargets(ctx, userID)
	channelID := resolveChannelID(payload.ChannelID, payload.ChannelName, targets)

	if channelID == "" {
		if recipientID := resolveSlackUserID(payload.RecipientID, payload.RecipientName, targets); recipientID != "" {
			dmChannel, err := d.slack.OpenDM(ctx, token, recipientID)
			if err != nil {
				return nil, providerFailure(err, "open Slack conversation")
			}
			channelID = dmChannel
		}
	}

	// Resolution failures are caller errors; no provider call has happened
	// on this path when channelID came up empty from the target maps alone.
	if channelID == "" {
		return nil, apperrors.NewMissingFieldError("missing Slack channel or recipient")
	}

	response, err := d.slack.PostMessage(ctx, token, channelID, message)
	if err != nil {
		return nil, providerFailure(err, "post Slack message")
	}

	payload.ProviderMessageTs, _ = response["ts"].(string)
	payload.ProviderChannelID, _ = response["channel"].(string)
	payload.ProviderStatus = "sent"

	return map[string]interface{}{
		"message_ts": response["ts"],
		"channel_id": response["channel"],
		"status":     "sent",
	}, nil
}
