package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"braindump/application/ports"
	"braindump/domain/credential"
	"braindump/pkg/auth"
	"braindump/pkg/common"
	apperrors "braindump/pkg/errors"
	"braindump/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeExchanger trades an authorization code for tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, provider credential.Provider, code, codeVerifier, redirectURI string) (*ports.TokenResult, error)
}

// IntegrationHandler manages provider connections: OAuth state, code
// exchange, status, and disconnect.
type IntegrationHandler struct {
	creds     ports.CredentialRepository
	states    ports.OAuthStateRepository
	exchanger CodeExchanger
	cache     ports.Cache
	logger    *zap.Logger
}

// NewIntegrationHandler creates a new integration handler.
func NewIntegrationHandler(
	creds ports.CredentialRepository,
	states ports.OAuthStateRepository,
	exchanger CodeExchanger,
	cache ports.Cache,
	logger *zap.Logger,
) *IntegrationHandler {
	return &IntegrationHandler{
		creds:     creds,
		states:    states,
		exchanger: exchanger,
		cache:     cache,
		logger:    logger,
	}
}

func providerParam(r *http.Request) (credential.Provider, error) {
	provider := credential.Provider(chi.URLParam(r, "provider"))
	if !credential.IsValidProvider(provider) {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown provider '%s'", provider))
	}
	return provider, nil
}

// Start handles POST /integrations/{provider}/start. It mints the state the
// client must carry through the provider's authorize redirect.
func (h *IntegrationHandler) Start(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}
	provider, err := providerParam(r)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	state := uuid.New().String()
	if err := h.states.Create(r.Context(), userCtx.UserID, state, provider); err != nil {
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"state":    state,
		"provider": provider,
	})
}

// ExchangeRequest is the body for POST /integrations/{provider}/exchange.
type ExchangeRequest struct {
	Code         string `json:"code" validate:"required"`
	State        string `json:"state" validate:"required"`
	RedirectURI  string `json:"redirect_uri" validate:"required,url"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// Exchange handles POST /integrations/{provider}/exchange. The state must
// match an in-flight Start for the same user and provider.
func (h *IntegrationHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}
	provider, err := providerParam(r)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, apperrors.NewValidationError("invalid JSON in request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	stateUser, stateProvider, ok, err := h.states.Consume(r.Context(), req.State)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	if !ok || stateUser != userCtx.UserID || stateProvider != provider {
		common.RespondError(w, apperrors.NewValidationError("unknown or expired state"))
		return
	}

	result, err := h.exchanger.ExchangeCode(r.Context(), provider, req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		h.logger.Warn("Code exchange failed",
			zap.Error(err),
			zap.String("provider", string(provider)),
		)
		common.RespondError(w, apperrors.NewProviderError("authorization code exchange failed", err))
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	cred := &credential.Credential{
		Provider:     provider,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Scope:        result.Scope,
		TokenHint:    credential.Hint(result.AccessToken),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if result.ExpiresIn > 0 {
		cred.ExpiresAtEpoch = time.Now().Unix() + result.ExpiresIn
	}
	if err := h.creds.Put(r.Context(), userCtx.UserID, cred); err != nil {
		common.RespondError(w, err)
		return
	}
	h.invalidateToken(userCtx.UserID, provider)

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"provider":   provider,
		"token_hint": cred.TokenHint,
	})
}

// Status handles GET /integrations.
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	providers := []credential.Provider{
		credential.ProviderGoogle,
		credential.ProviderMicrosoft,
		credential.ProviderSlack,
	}
	statuses := make([]map[string]interface{}, 0, len(providers))
	for _, provider := range providers {
		cred, err := h.creds.Get(r.Context(), userCtx.UserID, provider)
		if err != nil {
			common.RespondError(w, err)
			return
		}
		status := map[string]interface{}{
			"provider":  provider,
			"connected": cred != nil,
		}
		if cred != nil {
			status["token_hint"] = cred.TokenHint
			status["updated_at"] = cred.UpdatedAt
		}
		statuses = append(statuses, status)
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"integrations": statuses,
	})
}

// Disconnect handles DELETE /integrations/{provider}.
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}
	provider, err := providerParam(r)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.creds.Delete(r.Context(), userCtx.UserID, provider); err != nil {
		common.RespondError(w, err)
		return
	}
	h.invalidateToken(userCtx.UserID, provider)

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"provider": provider,
	})
}

// invalidateToken drops any cached access token so the next dispatch reads
// the store again.
func (h *IntegrationHandler) invalidateToken(userID string, provider credential.Provider) {
	if h.cache == nil {
		return
	}
	h.cache.Delete(fmt.Sprintf("token#%s#%s", userID, provider))
}
