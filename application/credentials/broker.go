// Package credentials resolves usable provider access tokens, refreshing and
// rotating stored token material as needed.
package credentials

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"braindump/application/ports"
	"braindump/domain/credential"
	"braindump/domain/timeres"
	apperrors "braindump/pkg/errors"
)

const (
	// expirySkew treats tokens expiring this soon as already expired.
	expirySkew = 60 * time.Second
	// maxCacheTTL bounds how long a token is served from cache.
	maxCacheTTL = 5 * time.Minute
	// refreshTimeout bounds one token endpoint call.
	refreshTimeout = 10 * time.Second
)

// Broker resolves access tokens per (user, provider). The cache is a pure
// optimization: evicting it, or never populating it, only costs a refresh.
type Broker struct {
	creds     ports.CredentialRepository
	refresher ports.TokenRefresher
	cache     ports.Cache
	logger    *zap.Logger
}

// NewBroker wires a Broker. cache may be nil to disable memoization.
func NewBroker(creds ports.CredentialRepository, refresher ports.TokenRefresher, cache ports.Cache, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{creds: creds, refresher: refresher, cache: cache, logger: logger}
}

// AccessToken returns a usable access token for the provider. Errors are
// typed: NotConnected when no credential is stored, ReauthRequired when the
// refresh token is rejected, RefreshFailed for anything else. Refresh is
// attempted exactly once per call.
func (b *Broker) AccessToken(ctx context.Context, userID string, provider credential.Provider) (string, error) {
	cacheKey := "token#" + userID + "#" + string(provider)
	if b.cache != nil {
		if cached, ok := b.cache.Get(cacheKey); ok {
			if token, ok := cached.(string); ok && token != "" {
				return token, nil
			}
		}
	}

	cred, err := b.creds.Get(ctx, userID, provider)
	if err != nil {
		return "", apperrors.NewDatabaseError("get credential", err)
	}
	if cred == nil {
		return "", apperrors.NewNotConnectedError(string(provider))
	}

	// Slack issues long-lived user tokens with no refresh token; serve the
	// stored token directly.
	if cred.RefreshToken == "" {
		if cred.AccessToken == "" {
			return "", apperrors.NewNotConnectedError(string(provider))
		}
		b.cacheToken(cacheKey, cred.AccessToken, 0)
		return cred.AccessToken, nil
	}

	if cred.AccessToken != "" && !cred.IsExpired(expirySkew) {
		b.cacheToken(cacheKey, cred.AccessToken, cred.ExpiresAtEpoch)
		return cred.AccessToken, nil
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	result, err := b.refresher.Refresh(refreshCtx, provider, cred.RefreshToken)
	if err != nil {
		var tokenErr *ports.TokenError
		if errors.As(err, &tokenErr) && tokenErr.IsInvalidGrant() {
			b.logger.Warn("refresh token rejected",
				zap.String("provider", string(provider)),
				zap.String("token_hint", credential.Hint(cred.RefreshToken)),
			)
			return "", apperrors.NewReauthRequiredError(string(provider))
		}
		return "", apperrors.NewRefreshFailedError(string(provider), err)
	}
	if result == nil || result.AccessToken == "" {
		return "", apperrors.NewRefreshFailedError(string(provider), errors.New("token endpoint returned no access token"))
	}

	if err := b.persistRotation(ctx, userID, cred, result); err != nil {
		// The new token is usable even if persistence failed; the next call
		// simply refreshes again.
		b.logger.Error("failed to persist rotated credential",
			zap.String("provider", string(provider)), zap.Error(err))
	}

	b.cacheToken(cacheKey, result.AccessToken, cred.ExpiresAtEpoch)
	return result.AccessToken, nil
}

// persistRotation overwrites the stored credential with the refreshed token
// material. A rotated refresh token retires the old one as a hashed audit row.
func (b *Broker) persistRotation(ctx context.Context, userID string, cred *credential.Credential, result *ports.TokenResult) error {
	if result.RefreshToken != "" && result.RefreshToken != cred.RefreshToken {
		if err := b.creds.RetireRefreshToken(ctx, userID, cred.Provider, credential.HashToken(cred.RefreshToken)); err != nil {
			b.logger.Warn("failed to retire superseded refresh token",
				zap.String("provider", string(cred.Provider)), zap.Error(err))
		}
		cred.RefreshToken = result.RefreshToken
	}

	cred.AccessToken = result.AccessToken
	cred.TokenHint = credential.Hint(result.AccessToken)
	if result.ExpiresIn > 0 {
		cred.ExpiresAtEpoch = time.Now().Unix() + result.ExpiresIn
	}
	if result.Scope != "" {
		cred.Scope = result.Scope
	}
	cred.UpdatedAt = timeres.UTCNowISO()

	return b.creds.Put(ctx, userID, cred)
}

func (b *Broker) cacheToken(key, token string, expiresAtEpoch int64) {
	if b.cache == nil {
		return
	}
	ttl := maxCacheTTL
	if expiresAtEpoch > 0 {
		until := time.Until(time.Unix(expiresAtEpoch, 0)) - expirySkew
		if until <= 0 {
			return
		}
		if until < ttl {
			ttl = until
		}
	}
	b.cache.Set(key, token, ttl)
}
