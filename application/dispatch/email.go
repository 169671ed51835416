package dispatch

import (
	"context"
	"strings"

	"braindump/application/ports"
	"braindump/domain/node"
	apperrors "braindump/pkg/errors"
)

// normalizeRecipients flattens a to_email value that may be a single address,
// a comma-separated string, or a list.
func normalizeRecipients(value interface{}) []string {
	switch v := value.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []string:
		var out []string
		for _, entry := range v {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []interface{}:
		var out []string
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		return out
	}
	return nil
}

// resolveContactEmail looks a name up case-insensitively with whitespace
// normalized on both sides.
func resolveContactEmail(name string, contacts map[string]string) string {
	if name == "" || len(contacts) == 0 {
		return ""
	}
	normalized := normalizeName(name)
	for key, email := range contacts {
		if normalizeName(key) == normalized {
			return email
		}
	}
	return ""
}

// resolveRecipients resolves the destination addresses: explicit to_email
// first, then a to_name that is itself an address, then the contact map.
func resolveRecipients(payload *node.EmailPayload, contacts map[string]string) []string {
	if recipients := normalizeRecipients(payload.ToEmail); len(recipients) > 0 {
		return recipients
	}

	name := strings.TrimSpace(payload.ToName)
	if name == "" {
		return nil
	}
	if email := trimmedEmail(name); email != "" {
		return []string{email}
	}
	if resolved := resolveContactEmail(name, contacts); resolved != "" {
		return []string{resolved}
	}
	return nil
}

// trimmedEmail treats any entry containing '@' as an address.
func trimmedEmail(entry string) string {
	trimmed := strings.TrimSpace(entry)
	if strings.Contains(trimmed, "@") {
		return trimmed
	}
	return ""
}

// checkMailFields validates executor preconditions shared by both email
// variants and returns the resolved recipients.
func checkMailFields(payload *node.EmailPayload, contacts map[string]string) ([]string, error) {
	if strings.TrimSpace(payload.Subject) == "" {
		return nil, apperrors.NewMissingFieldError("missing email subject")
	}
	if strings.TrimSpace(payload.Body) == "" {
		return nil, apperrors.NewMissingFieldError("missing email body")
	}
	recipients := resolveRecipients(payload, contacts)
	if len(recipients) == 0 {
		return nil, apperrors.NewMissingFieldError("missing recipient email")
	}
	return recipients, nil
}

func mailMessage(payload *node.EmailPayload, recipients []string) ports.MailMessage {
	return ports.MailMessage{
		To:      recipients,
		Cc:      normalizeRecipients(payload.Cc),
		Bcc:     normalizeRecipients(payload.Bcc),
		Subject: strings.TrimSpace(payload.Subject),
		Body:    strings.TrimSpace(payload.Body),
	}
}

func (d *Dispatcher) executeGmail(ctx context.Context, token, userID string, n *node.Node) (map[string]interface{}, error) {
	payload := n.Email
	if payload == nil {
		return nil, apperrors.NewMissingFieldError("email payload missing")
	}

	recipients, err := checkMailFields(payload, d.contacts(ctx, userID))
	if err != nil {
		return nil, err
	}
	msg := mailMessage(payload, recipients)

	sendMode := strings.ToLower(strings.TrimSpace(payload.SendMode))
	if sendMode != "draft" {
		// Unknown modes fall back to send.
		sendMode = "send"
	}

	var response map[string]interface{}
	if sendMode == "draft" {
		result, err := d.gmail.CreateDraft(ctx, token, msg)
		if err != nil {
			return nil, providerFailure(err, "create Gmail draft")
		}
		message, _ := result["message"].(map[string]interface{})
		response = map[string]interface{}{
			"draft_id":   result["id"],
			"message_id": message["id"],
			"thread_id":  message["threadId"],
			"status":     "drafted",
		}
	} else {
		result, err := d.gmail.Send(ctx, token, msg)
		if err != nil {
			return nil, providerFailure(err, "send Gmail message")
		}
		response = map[string]interface{}{
			"message_id": result["id"],
			"thread_id":  result["threadId"],
			"status":     "sent",
		}
	}

	payload.ToEmail = strings.Join(recipients, ", ")
	payload.ProviderMessageID, _ = response["message_id"].(string)
	payload.ProviderThreadID, _ = response["thread_id"].(string)
	payload.ProviderDraftID, _ = response["draft_id"].(string)
	payload.ProviderStatus, _ = response["status"].(string)
	return response, nil
}

func (d *Dispatcher) executeOutlookMail(ctx context.Context, token, userID string, n *node.Node) (map[string]interface{}, error) {
	payload := n.MsEmail
	if payload == nil {
		return nil, apperrors.NewMissingFieldError("ms_email payload missing")
	}

	recipients, err := checkMailFields(payload, d.contacts(ctx, userID))
	if err != nil {
		return nil, err
	}

	// Graph has no draft path here; ms_email nodes always send.
	response, err := d.graph.SendMail(ctx, token, mailMessage(payload, recipients))
	if err != nil {
		return nil, providerFailure(err, "send Outlook email")
	}

	payload.ToEmail = strings.Join(recipients, ", ")
	payload.ProviderStatus, _ = response["status"].(string)
	return response, nil
}
