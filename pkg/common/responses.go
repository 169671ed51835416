package common

import (
	"encoding/json"
	"net/http"

	"braindump/pkg/errors"
)

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Type    string                 `json:"type,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON writes data as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondError maps err onto an HTTP error response. AppErrors carry their
// own status and type; anything else becomes an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		RespondJSON(w, errors.StatusOf(err), ErrorResponse{
			Error:   appErr.Message,
			Type:    string(appErr.Type),
			Details: appErr.Details,
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
