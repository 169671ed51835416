// Package ports declares the interfaces the application layer depends on.
// Infrastructure supplies the implementations; tests supply fakes.
package ports

import (
	"context"

	"braindump/domain/credential"
	"braindump/domain/node"
)

// NodeRepository persists node documents under their owner and local day.
type NodeRepository interface {
	// Save writes the node under (userID, localDay). Last write wins.
	Save(ctx context.Context, userID, localDay string, n *node.Node, rawTranscript string) error
	// QueryByDay returns all nodes captured on the given local day.
	QueryByDay(ctx context.Context, userID, localDay string) ([]*node.Node, error)
	// QueryActive returns all nodes with status active, any day.
	QueryActive(ctx context.Context, userID string) ([]*node.Node, error)
	// FindDay locates the local day a node was stored under. found is false
	// when the user has no node with that id.
	FindDay(ctx context.Context, userID, nodeID string) (localDay string, found bool, err error)
	// Delete removes one node. Missing nodes are not an error.
	Delete(ctx context.Context, userID, localDay, nodeID string) error
}

// CredentialRepository stores per-provider token material.
type CredentialRepository interface {
	// Get returns the stored credential, or nil when none exists.
	Get(ctx context.Context, userID string, provider credential.Provider) (*credential.Credential, error)
	// Put overwrites the stored credential.
	Put(ctx context.Context, userID string, cred *credential.Credential) error
	// RetireRefreshToken records the hash of a superseded refresh token as a
	// TTL-bound audit row. The raw token is never stored.
	RetireRefreshToken(ctx context.Context, userID string, provider credential.Provider, tokenHash string) error
	// Delete removes the credential (explicit disconnect only).
	Delete(ctx context.Context, userID string, provider credential.Provider) error
}

// SlackTargets are the user-maintained name-to-id maps used to resolve
// loosely named Slack destinations.
type SlackTargets struct {
	Channels map[string]string `json:"channels"`
	Users    map[string]string `json:"users"`
}

// SettingsRepository stores per-user auxiliary lookup maps.
type SettingsRepository interface {
	// GetContacts returns the name-to-email map, empty when unset.
	GetContacts(ctx context.Context, userID string) (map[string]string, error)
	// PutContacts replaces the contact map, preserving created_at.
	PutContacts(ctx context.Context, userID string, contacts map[string]string) error
	// GetSlackTargets returns the channel/user maps, empty when unset.
	GetSlackTargets(ctx context.Context, userID string) (SlackTargets, error)
	// PutSlackTargets replaces the slack target maps, preserving created_at.
	PutSlackTargets(ctx context.Context, userID string, targets SlackTargets) error
}

// OAuthStateRepository correlates in-flight authorization flows. Records
// expire on their own via TTL.
type OAuthStateRepository interface {
	Create(ctx context.Context, userID, state string, provider credential.Provider) error
	// Consume looks up and deletes the state record, returning its owner and
	// provider. ok is false for unknown or expired state.
	Consume(ctx context.Context, state string) (userID string, provider credential.Provider, ok bool, err error)
}
