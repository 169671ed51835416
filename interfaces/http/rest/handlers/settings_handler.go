package handlers

import (
	"encoding/json"
	"net/http"

	"braindump/application/ports"
	"braindump/pkg/auth"
	"braindump/pkg/common"
	apperrors "braindump/pkg/errors"

	"go.uber.org/zap"
)

// SettingsHandler manages the per-user contact and Slack target maps.
type SettingsHandler struct {
	settings ports.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings ports.SettingsRepository, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// GetContacts handles GET /settings/contacts.
func (h *SettingsHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	contacts, err := h.settings.GetContacts(r.Context(), userCtx.UserID)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"contacts": contacts,
	})
}

// PutContactsRequest is the body for PUT /settings/contacts.
type PutContactsRequest struct {
	Contacts map[string]string `json:"contacts"`
}

// PutContacts handles PUT /settings/contacts.
func (h *SettingsHandler) PutContacts(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	var req PutContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, apperrors.NewValidationError("invalid JSON in request body"))
		return
	}
	if req.Contacts == nil {
		common.RespondError(w, apperrors.NewMissingFieldError("contacts map is required"))
		return
	}

	if err := h.settings.PutContacts(r.Context(), userCtx.UserID, req.Contacts); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"count": len(req.Contacts),
	})
}

// GetSlackTargets handles GET /settings/slack-targets.
func (h *SettingsHandler) GetSlackTargets(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	targets, err := h.settings.GetSlackTargets(r.Context(), userCtx.UserID)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"channels": targets.Channels,
		"users":    targets.Users,
	})
}

// PutSlackTargetsRequest is the body for PUT /settings/slack-targets.
type PutSlackTargetsRequest struct {
	Channels map[string]string `json:"channels"`
	Users    map[string]string `json:"users"`
}

// PutSlackTargets handles PUT /settings/slack-targets.
func (h *SettingsHandler) PutSlackTargets(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	var req PutSlackTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, apperrors.NewValidationError("invalid JSON in request body"))
		return
	}
	if req.Channels == nil && req.Users == nil {
		common.RespondError(w, apperrors.NewMissingFieldError("channels or users map is required"))
		return
	}

	targets := ports.SlackTargets{Channels: req.Channels, Users: req.Users}
	if err := h.settings.PutSlackTargets(r.Context(), userCtx.UserID, targets); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"channels": len(req.Channels),
		"users":    len(req.Users),
	})
}
