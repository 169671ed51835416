// Package oauth implements token refresh and authorization-code exchange
// against the Google, Microsoft, and Slack token endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"braindump/application/ports"
	"braindump/domain/credential"
	apperrors "braindump/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2/endpoints"
)

// Slack's v2 endpoint; the x/oauth2 slack package still points at v1.
const slackTokenURL = "https://slack.com/api/oauth.v2.access"

// Config carries the registered OAuth client settings per provider.
type Config struct {
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string
	MicrosoftScopes       string
	SlackClientID         string
	SlackClientSecret     string
}

// Refresher implements ports.TokenRefresher over the provider token
// endpoints. Error bodies are parsed into structured TokenErrors so the
// caller can distinguish a revoked grant from a transient failure.
type Refresher struct {
	client *resty.Client
	config Config
	logger *zap.Logger
}

// NewRefresher creates a Refresher with its own HTTP client.
func NewRefresher(config Config, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")
	return &Refresher{
		client: client,
		config: config,
		logger: logger,
	}
}

// tokenResponse is the common shape of OAuth token endpoint responses. Slack
// wraps errors differently, handled below.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`

	// Slack only.
	OK *bool `json:"ok,omitempty"`
}

func (r *Refresher) tokenURL(provider credential.Provider) (string, error) {
	switch provider {
	case credential.ProviderGoogle:
		return endpoints.Google.TokenURL, nil
	case credential.ProviderMicrosoft:
		return endpoints.AzureAD(r.config.MicrosoftTenant).TokenURL, nil
	case credential.ProviderSlack:
		return slackTokenURL, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown provider '%s'", provider))
	}
}

func (r *Refresher) refreshForm(provider credential.Provider, refreshToken string) map[string]string {
	form := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}
	switch provider {
	case credential.ProviderGoogle:
		form["client_id"] = r.config.GoogleClientID
		if r.config.GoogleClientSecret != "" {
			form["client_secret"] = r.config.GoogleClientSecret
		}
	case credential.ProviderMicrosoft:
		form["client_id"] = r.config.MicrosoftClientID
		form["client_secret"] = r.config.MicrosoftClientSecret
		if r.config.MicrosoftScopes != "" {
			form["scope"] = r.config.MicrosoftScopes
		}
	case credential.ProviderSlack:
		form["client_id"] = r.config.SlackClientID
		form["client_secret"] = r.config.SlackClientSecret
	}
	return form
}

// Refresh exchanges a refresh token for a fresh access token.
func (r *Refresher) Refresh(ctx context.Context, provider credential.Provider, refreshToken string) (*ports.TokenResult, error) {
	url, err := r.tokenURL(provider)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetFormData(r.refreshForm(provider, refreshToken)).
		Post(url)
	if err != nil {
		return nil, &ports.TokenError{Code: "network_error", Description: err.Error()}
	}

	result, tokenErr := parseTokenResponse(provider, resp.StatusCode(), resp.Body())
	if tokenErr != nil {
		r.logger.Warn("Token refresh rejected",
			zap.String("provider", string(provider)),
			zap.String("code", tokenErr.Code),
			zap.Int("status", tokenErr.StatusCode),
		)
		return nil, tokenErr
	}
	return result, nil
}

// parseTokenResponse turns a token endpoint response into a TokenResult or a
// structured TokenError. Slack reports failure inside a 200 body via ok=false.
func parseTokenResponse(provider credential.Provider, statusCode int, body []byte) (*ports.TokenResult, *ports.TokenError) {
	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ports.TokenError{
			Code:        "invalid_response",
			Description: fmt.Sprintf("undecodable token response (HTTP %d)", statusCode),
			StatusCode:  statusCode,
		}
	}

	if payload.Error != "" {
		return nil, &ports.TokenError{
			Code:        payload.Error,
			Description: payload.ErrorDescription,
			StatusCode:  statusCode,
		}
	}
	if provider == credential.ProviderSlack && payload.OK != nil && !*payload.OK {
		return nil, &ports.TokenError{
			Code:        "slack_error",
			Description: "token request rejected",
			StatusCode:  statusCode,
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, &ports.TokenError{
			Code:        "http_error",
			Description: fmt.Sprintf("HTTP %d from token endpoint", statusCode),
			StatusCode:  statusCode,
		}
	}
	if payload.AccessToken == "" {
		return nil, &ports.TokenError{
			Code:        "empty_token",
			Description: "token endpoint returned no access_token",
			StatusCode:  statusCode,
		}
	}

	return &ports.TokenResult{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
		Scope:        payload.Scope,
	}, nil
}

// ExchangeCode trades an authorization code for tokens at the end of a
// connect flow. codeVerifier is the PKCE verifier, used by Google only.
func (r *Refresher) ExchangeCode(ctx context.Context, provider credential.Provider, code, codeVerifier, redirectURI string) (*ports.TokenResult, error) {
	url, err := r.tokenURL(provider)
	if err != nil {
		return nil, err
	}

	form := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	}
	switch provider {
	case credential.ProviderGoogle:
		form["client_id"] = r.config.GoogleClientID
		if r.config.GoogleClientSecret != "" {
			form["client_secret"] = r.config.GoogleClientSecret
		}
		if codeVerifier != "" {
			form["code_verifier"] = codeVerifier
		}
	case credential.ProviderMicrosoft:
		form["client_id"] = r.config.MicrosoftClientID
		form["client_secret"] = r.config.MicrosoftClientSecret
		if r.config.MicrosoftScopes != "" {
			form["scope"] = r.config.MicrosoftScopes
		}
	case credential.ProviderSlack:
		form["client_id"] = r.config.SlackClientID
		form["client_secret"] = r.config.SlackClientSecret
		delete(form, "grant_type")
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(url)
	if err != nil {
		return nil, &ports.TokenError{Code: "network_error", Description: err.Error()}
	}

	result, tokenErr := parseTokenResponse(provider, resp.StatusCode(), resp.Body())
	if tokenErr != nil {
		return nil, tokenErr
	}
	return result, nil
}
