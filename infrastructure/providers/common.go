package providers

import (
	"encoding/json"
	"fmt"

	apperrors "braindump/pkg/errors"
)

// providerHTTPError builds a provider failure from a non-success response,
// pulling the API's own error message out of the body when it has one.
func providerHTTPError(name string, statusCode int, body []byte) error {
	message := extractAPIError(body)
	if message == "" {
		message = fmt.Sprintf("HTTP %d", statusCode)
	}
	return apperrors.NewProviderError(fmt.Sprintf("%s: %s", name, message), nil)
}

// extractAPIError digs the human-readable message out of the common
// {"error": {"message": ...}} and {"error": "..."} shapes.
func extractAPIError(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return ""
	}

	var asString string
	if err := json.Unmarshal(envelope.Error, &asString); err == nil {
		return asString
	}
	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &asObject); err == nil {
		return asObject.Message
	}
	return ""
}
