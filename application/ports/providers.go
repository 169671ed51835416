package ports

import (
	"context"
	"time"

	"braindump/domain/credential"
	"braindump/domain/events"
)

// TokenResult is a successful token refresh. RefreshToken is set only when
// the provider rotated it.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Scope        string
}

// TokenError is a structured failure from a provider token endpoint. Code is
// the OAuth error code from the response body ("invalid_grant", ...), not a
// parsed message string.
type TokenError struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// IsInvalidGrant reports whether the refresh token itself was rejected, which
// requires re-authorization rather than a retry.
func (e *TokenError) IsInvalidGrant() bool {
	return e.Code == "invalid_grant" || e.Code == "invalid_rapt"
}

// TokenRefresher exchanges a refresh token for a fresh access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider credential.Provider, refreshToken string) (*TokenResult, error)
}

// MailMessage is a provider-neutral outbound email.
type MailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// EventDetails is a provider-neutral calendar event.
type EventDetails struct {
	Title         string
	StartDatetime string
	EndDatetime   string
	Description   string
	Location      string
	Attendees     []string
}

// CalendarClient creates events on the user's primary Google calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, accessToken string, event EventDetails) (map[string]interface{}, error)
}

// GmailClient sends or drafts mail through the Gmail API.
type GmailClient interface {
	Send(ctx context.Context, accessToken string, msg MailMessage) (map[string]interface{}, error)
	CreateDraft(ctx context.Context, accessToken string, msg MailMessage) (map[string]interface{}, error)
}

// GraphClient talks to Microsoft Graph for Outlook mail and calendar.
type GraphClient interface {
	SendMail(ctx context.Context, accessToken string, msg MailMessage) (map[string]interface{}, error)
	CreateEvent(ctx context.Context, accessToken string, event EventDetails) (map[string]interface{}, error)
}

// SlackClient posts messages and opens direct-message channels.
type SlackClient interface {
	PostMessage(ctx context.Context, accessToken, channelID, text string) (map[string]interface{}, error)
	OpenDM(ctx context.Context, accessToken, slackUserID string) (channelID string, err error)
}

// ExtractionRequest carries the transcript and its capture context to the
// model call.
type ExtractionRequest struct {
	Transcript   string
	UserTimeISO  string
	LocalDay     string
	Offset       string
	UserLocation string
	Contacts     map[string]string
	SlackTargets SlackTargets
}

// ExtractionResult is the model's opaque tool-call output plus provenance.
// Candidates are untyped; the validator owns turning them into nodes.
type ExtractionResult struct {
	Candidates []map[string]interface{}
	ModelID    string
	LatencyMs  int64
	ToolName   string
}

// NodeExtractor invokes the LLM and returns raw node candidates.
type NodeExtractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error)
}

// Cache is a TTL cache injected where memoization is wanted. Implementations
// must be safe for concurrent use; callers must tolerate misses at any time.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}

// EventPublisher emits domain events after persistence.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// MetricsRecorder records operational counters. Failures are logged, never
// propagated.
type MetricsRecorder interface {
	Count(ctx context.Context, name string, value float64, dimensions map[string]string)
}
