// Package credential models stored OAuth token material per (user, provider).
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Provider identifies an external integration.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderSlack     Provider = "slack"
)

// IsValidProvider reports whether p names a known integration.
func IsValidProvider(p Provider) bool {
	return p == ProviderGoogle || p == ProviderMicrosoft || p == ProviderSlack
}

// Credential is the stored token material for one (user, provider) pair.
// Created on first OAuth exchange, overwritten on every successful refresh,
// deleted only by explicit disconnect.
type Credential struct {
	Provider       Provider `json:"provider" dynamodbav:"provider"`
	AccessToken    string   `json:"-" dynamodbav:"access_token"`
	RefreshToken   string   `json:"-" dynamodbav:"refresh_token,omitempty"`
	ExpiresAtEpoch int64    `json:"expires_at_epoch,omitempty" dynamodbav:"expires_at_epoch,omitempty"`
	Scope          string   `json:"scope,omitempty" dynamodbav:"scope,omitempty"`
	ProviderUserID string   `json:"provider_user_id,omitempty" dynamodbav:"provider_user_id,omitempty"`

	// TokenHint is the only token-derived value safe to display or log.
	TokenHint string `json:"token_hint,omitempty" dynamodbav:"token_hint,omitempty"`

	// Slack-only workspace identity.
	TeamID   string `json:"team_id,omitempty" dynamodbav:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty" dynamodbav:"team_name,omitempty"`

	// Microsoft-only tenant.
	TenantID string `json:"tenant_id,omitempty" dynamodbav:"tenant_id,omitempty"`

	CreatedAt string `json:"created_at,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
}

// IsExpired reports whether the access token expires within skew.
func (c *Credential) IsExpired(skew time.Duration) bool {
	if c.ExpiresAtEpoch == 0 {
		return false
	}
	return time.Now().Add(skew).Unix() >= c.ExpiresAtEpoch
}

// Hint returns the trailing characters of a token, the only part ever shown.
func Hint(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[len(token)-4:]
}

// HashToken returns the hex SHA-256 of a token, used to retire superseded
// refresh tokens without storing the secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
