// Package dispatch routes validated nodes to their provider side effect. One
// call produces at most one provider effect; re-dispatching the same node is
// the caller's responsibility to guard (check provider_event_id first).
package dispatch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"braindump/application/ports"
	"braindump/domain/credential"
	"braindump/domain/node"
	apperrors "braindump/pkg/errors"
)

// TokenSource resolves provider access tokens; the credential broker is the
// production implementation.
type TokenSource interface {
	AccessToken(ctx context.Context, userID string, provider credential.Provider) (string, error)
}

// Dispatcher is the per-node-type execution state machine. Credential
// resolution always precedes the provider call.
type Dispatcher struct {
	tokens   TokenSource
	settings ports.SettingsRepository
	calendar ports.CalendarClient
	gmail    ports.GmailClient
	graph    ports.GraphClient
	slack    ports.SlackClient
	metrics  ports.MetricsRecorder
	logger   *zap.Logger
}

// NewDispatcher wires a Dispatcher. metrics may be nil.
func NewDispatcher(
	tokens TokenSource,
	settings ports.SettingsRepository,
	calendar ports.CalendarClient,
	gmail ports.GmailClient,
	graph ports.GraphClient,
	slack ports.SlackClient,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		tokens:   tokens,
		settings: settings,
		calendar: calendar,
		gmail:    gmail,
		graph:    graph,
		slack:    slack,
		metrics:  metrics,
		logger:   logger,
	}
}

// ProviderFor returns the credential provider backing a node type, or "" for
// non-executable types.
func ProviderFor(t node.Type) credential.Provider {
	switch t {
	case node.TypeCalendarPlaceholder, node.TypeEmail:
		return credential.ProviderGoogle
	case node.TypeMsEmail, node.TypeMsCalendar:
		return credential.ProviderMicrosoft
	case node.TypeSlackMessage:
		return credential.ProviderSlack
	}
	return ""
}

// Execute runs the node's side effect. Non-executable node types either fail
// with Unsupported (requireSupported) or pass through unchanged with a nil
// provider result. On success the node's payload carries the provider_*
// fields and the raw provider response is returned alongside.
func (d *Dispatcher) Execute(ctx context.Context, userID string, n *node.Node, requireSupported bool) (*node.Node, map[string]interface{}, error) {
	d.logger.Info("dispatch start",
		zap.String("node_type", string(n.NodeType)),
		zap.String("node_id", n.NodeID),
		zap.Bool("require_supported", requireSupported),
	)

	if !node.ExecutableTypes[n.NodeType] {
		if requireSupported {
			return nil, nil, apperrors.NewUnsupportedError(
				"node type " + string(n.NodeType) + " is not executable")
		}
		return n, nil, nil
	}

	provider := ProviderFor(n.NodeType)
	token, err := d.tokens.AccessToken(ctx, userID, provider)
	if err != nil {
		d.count(ctx, "DispatchFailure", n.NodeType)
		return nil, nil, err
	}

	var response map[string]interface{}
	switch n.NodeType {
	case node.TypeCalendarPlaceholder:
		response, err = d.executeGoogleCalendar(ctx, token, n)
	case node.TypeEmail:
		response, err = d.executeGmail(ctx, token, userID, n)
	case node.TypeMsEmail:
		response, err = d.executeOutlookMail(ctx, token, userID, n)
	case node.TypeMsCalendar:
		response, err = d.executeOutlookCalendar(ctx, token, n)
	case node.TypeSlackMessage:
		response, err = d.executeSlack(ctx, token, userID, n)
	}
	if err != nil {
		d.count(ctx, "DispatchFailure", n.NodeType)
		return nil, nil, err
	}

	d.count(ctx, "DispatchSuccess", n.NodeType)
	d.logger.Info("dispatch complete",
		zap.String("node_type", string(n.NodeType)),
		zap.String("node_id", n.NodeID),
	)
	return n, response, nil
}

func (d *Dispatcher) contacts(ctx context.Context, userID string) map[string]string {
	if d.settings == nil {
		return nil
	}
	contacts, err := d.settings.GetContacts(ctx, userID)
	if err != nil {
		d.logger.Warn("contacts lookup failed", zap.Error(err))
		return nil
	}
	return contacts
}

func (d *Dispatcher) slackTargets(ctx context.Context, userID string) ports.SlackTargets {
	if d.settings == nil {
		return ports.SlackTargets{}
	}
	targets, err := d.settings.GetSlackTargets(ctx, userID)
	if err != nil {
		d.logger.Warn("slack targets lookup failed", zap.Error(err))
		return ports.SlackTargets{}
	}
	return targets
}

func (d *Dispatcher) count(ctx context.Context, name string, t node.Type) {
	if d.metrics != nil {
		d.metrics.Count(ctx, name, 1, map[string]string{"node_type": string(t)})
	}
}

// normalizeName lowercases, trims, strips a leading '#', and collapses inner
// whitespace, matching how users write channel and contact names.
func normalizeName(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.TrimPrefix(value, "#")
	return strings.Join(strings.Fields(value), " ")
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// providerFailure preserves typed provider errors and maps anything untyped
// to a 502, matching the dispatch-path contract.
func providerFailure(err error, message string) error {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return apperrors.Wrap(err, message)
	}
	return apperrors.NewProviderError(message, err)
}
