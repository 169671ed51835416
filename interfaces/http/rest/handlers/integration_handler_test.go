package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"braindump/application/ports"
	"braindump/domain/credential"
)

type fakeCredRepo struct {
	stored  map[credential.Provider]*credential.Credential
	deleted []credential.Provider
}

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{stored: make(map[credential.Provider]*credential.Credential)}
}

func (f *fakeCredRepo) Get(_ context.Context, _ string, provider credential.Provider) (*credential.Credential, error) {
	return f.stored[provider], nil
}

func (f *fakeCredRepo) Put(_ context.Context, _ string, cred *credential.Credential) error {
	f.stored[cred.Provider] = cred
	return nil
}

func (f *fakeCredRepo) RetireRefreshToken(_ context.Context, _ string, _ credential.Provider, _ string) error {
	return nil
}

func (f *fakeCredRepo) Delete(_ context.Context, _ string, provider credential.Provider) error {
	f.deleted = append(f.deleted, provider)
	delete(f.stored, provider)
	return nil
}

type stateRecord struct {
	userID   string
	provider credential.Provider
}

type fakeStateRepo struct {
	states map[string]stateRecord
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]stateRecord)}
}

func (f *fakeStateRepo) Create(_ context.Context, userID, state string, provider credential.Provider) error {
	f.states[state] = stateRecord{userID, provider}
	return nil
}

func (f *fakeStateRepo) Consume(_ context.Context, state string) (string, credential.Provider, bool, error) {
	rec, ok := f.states[state]
	delete(f.states, state)
	return rec.userID, rec.provider, ok, nil
}

type fakeExchanger struct {
	result *ports.TokenResult
	err    error
	codes  []string
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _ credential.Provider, code, _, _ string) (*ports.TokenResult, error) {
	f.codes = append(f.codes, code)
	return f.result, f.err
}

type recordingCache struct {
	deleted []string
}

func (c *recordingCache) Get(_ string) (interface{}, bool)             { return nil, false }
func (c *recordingCache) Set(_ string, _ interface{}, _ time.Duration) {}
func (c *recordingCache) Delete(key string)                            { c.deleted = append(c.deleted, key) }

func TestStartMintsState(t *testing.T) {
	states := newFakeStateRepo()
	h := NewIntegrationHandler(newFakeCredRepo(), states, &fakeExchanger{}, nil, zap.NewNop())

	req := authedRequest(t, http.MethodPost, "/api/v1/integrations/google/start", nil)
	req = withURLParam(req, "provider", "google")

	rec := httptest.NewRecorder()
	h.Start(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	state, _ := body["state"].(string)
	require.NotEmpty(t, state)
	assert.Equal(t, stateRecord{"user-1", credential.ProviderGoogle}, states.states[state])
}

func TestStartRejectsUnknownProvider(t *testing.T) {
	h := NewIntegrationHandler(newFakeCredRepo(), newFakeStateRepo(), &fakeExchanger{}, nil, zap.NewNop())

	req := authedRequest(t, http.MethodPost, "/api/v1/integrations/dropbox/start", nil)
	req = withURLParam(req, "provider", "dropbox")

	rec := httptest.NewRecorder()
	h.Start(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeStoresCredentialAndInvalidatesCache(t *testing.T) {
	creds := newFakeCredRepo()
	states := newFakeStateRepo()
	states.states["state-1"] = stateRecord{"user-1", credential.ProviderGoogle}
	exchanger := &fakeExchanger{result: &ports.TokenResult{
		AccessToken:  "ya29.secret-access-token",
		RefreshToken: "1//refresh",
		ExpiresIn:    3600,
		Scope:        "calendar gmail",
	}}
	cache := &recordingCache{}
	h := NewIntegrationHandler(creds, states, exchanger, cache, zap.NewNop())

	payload := []byte(`{
		"code": "auth-code",
		"state": "state-1",
		"redirect_uri": "https://app.example.com/oauth/callback"
	}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/integrations/google/exchange", payload)
	req = withURLParam(req, "provider", "google")

	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])

	stored := creds.stored[credential.ProviderGoogle]
	require.NotNil(t, stored)
	assert.Equal(t, "ya29.secret-access-token", stored.AccessToken)
	assert.Equal(t, "1//refresh", stored.RefreshToken)
	assert.Greater(t, stored.ExpiresAtEpoch, time.Now().Unix())
	assert.Equal(t, []string{"auth-code"}, exchanger.codes)
	assert.Equal(t, []string{"token#user-1#google"}, cache.deleted)

	// state is single-use
	_, _, ok, _ := states.Consume(req.Context(), "state-1")
	assert.False(t, ok)
}

func TestExchangeRejectsForeignState(t *testing.T) {
	states := newFakeStateRepo()
	states.states["state-1"] = stateRecord{"someone-else", credential.ProviderGoogle}
	h := NewIntegrationHandler(newFakeCredRepo(), states, &fakeExchanger{}, nil, zap.NewNop())

	payload := []byte(`{
		"code": "auth-code",
		"state": "state-1",
		"redirect_uri": "https://app.example.com/oauth/callback"
	}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/integrations/google/exchange", payload)
	req = withURLParam(req, "provider", "google")

	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeRequiresRedirectURI(t *testing.T) {
	h := NewIntegrationHandler(newFakeCredRepo(), newFakeStateRepo(), &fakeExchanger{}, nil, zap.NewNop())

	payload := []byte(`{"code": "auth-code", "state": "state-1"}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/integrations/google/exchange", payload)
	req = withURLParam(req, "provider", "google")

	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusListsAllProviders(t *testing.T) {
	creds := newFakeCredRepo()
	creds.stored[credential.ProviderSlack] = &credential.Credential{
		Provider:  credential.ProviderSlack,
		TokenHint: "abcd",
		UpdatedAt: "2026-03-10T00:00:00Z",
	}
	h := NewIntegrationHandler(creds, newFakeStateRepo(), &fakeExchanger{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Status(rec, authedRequest(t, http.MethodGet, "/api/v1/integrations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	integrations, _ := body["integrations"].([]interface{})
	require.Len(t, integrations, 3)

	connected := 0
	for _, raw := range integrations {
		entry := raw.(map[string]interface{})
		if entry["connected"] == true {
			connected++
			assert.Equal(t, "slack", entry["provider"])
			assert.Equal(t, "abcd", entry["token_hint"])
		}
	}
	assert.Equal(t, 1, connected)
}

func TestDisconnectDeletesCredential(t *testing.T) {
	creds := newFakeCredRepo()
	creds.stored[credential.ProviderMicrosoft] = &credential.Credential{Provider: credential.ProviderMicrosoft}
	cache := &recordingCache{}
	h := NewIntegrationHandler(creds, newFakeStateRepo(), &fakeExchanger{}, cache, zap.NewNop())

	req := authedRequest(t, http.MethodDelete, "/api/v1/integrations/microsoft", nil)
	req = withURLParam(req, "provider", "microsoft")

	rec := httptest.NewRecorder()
	h.Disconnect(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, creds.stored)
	assert.Equal(t, []string{"token#user-1#microsoft"}, cache.deleted)
}
