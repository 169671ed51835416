// Package events defines the domain events published after persistence.
package events

import "time"

// DomainEvent is implemented by every published event.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

type base struct {
	At time.Time `json:"occurred_at"`
}

func (b base) OccurredAt() time.Time { return b.At }

// NodeCaptured is published after a node produced by ingestion is stored.
type NodeCaptured struct {
	base
	UserID       string `json:"user_id"`
	NodeID       string `json:"node_id"`
	NodeType     string `json:"node_type"`
	LocalDay     string `json:"local_day"`
	FallbackUsed bool   `json:"fallback_used"`
}

// EventType identifies the event on the bus.
func (NodeCaptured) EventType() string { return "node.captured" }

// NewNodeCaptured creates a NodeCaptured event.
func NewNodeCaptured(userID, nodeID, nodeType, localDay string, fallbackUsed bool) NodeCaptured {
	return NodeCaptured{
		base:         base{At: time.Now().UTC()},
		UserID:       userID,
		NodeID:       nodeID,
		NodeType:     nodeType,
		LocalDay:     localDay,
		FallbackUsed: fallbackUsed,
	}
}

// NodeExecuted is published after a node's side effect ran against a provider.
type NodeExecuted struct {
	base
	UserID   string `json:"user_id"`
	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
}

// EventType identifies the event on the bus.
func (NodeExecuted) EventType() string { return "node.executed" }

// NewNodeExecuted creates a NodeExecuted event.
func NewNodeExecuted(userID, nodeID, nodeType, provider string, success bool) NodeExecuted {
	return NodeExecuted{
		base:     base{At: time.Now().UTC()},
		UserID:   userID,
		NodeID:   nodeID,
		NodeType: nodeType,
		Provider: provider,
		Success:  success,
	}
}
