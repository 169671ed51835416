package handlers

import (
	"encoding/json"
	"net/http"

	"braindump/application/dispatch"
	"braindump/application/ports"
	"braindump/domain/events"
	"braindump/domain/node"
	"braindump/domain/timeres"
	"braindump/pkg/auth"
	"braindump/pkg/common"
	apperrors "braindump/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NodeHandler handles completion, execution, listing, and deletion of nodes.
type NodeHandler struct {
	dispatcher *dispatch.Dispatcher
	nodes      ports.NodeRepository
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler.
func NewNodeHandler(
	dispatcher *dispatch.Dispatcher,
	nodes ports.NodeRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		dispatcher: dispatcher,
		nodes:      nodes,
		publisher:  publisher,
		logger:     logger,
	}
}

// completeRequest is the body for POST /nodes/complete. The node may sit
// under the "node" key or be the whole body.
type completeRequest struct {
	Node          json.RawMessage `json:"node"`
	NodeID        string          `json:"node_id,omitempty"`
	CapturedAtISO string          `json:"captured_at_iso,omitempty"`
	RawTranscript string          `json:"raw_transcript,omitempty"`
}

// decodeNodeBody accepts either {"node": {...}} or a bare node object.
func decodeNodeBody(r *http.Request) (*node.Node, *completeRequest, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, nil, apperrors.NewValidationError("invalid JSON in request body")
	}

	var req completeRequest
	_ = json.Unmarshal(raw, &req)

	nodeDoc := req.Node
	if len(nodeDoc) == 0 {
		nodeDoc = raw
	}

	var n node.Node
	if err := json.Unmarshal(nodeDoc, &n); err != nil {
		return nil, nil, apperrors.NewValidationError("node must be a JSON object")
	}
	return &n, &req, nil
}

// Complete handles POST /nodes/complete. Executable nodes run their
// integration first; everything is persisted afterwards.
func (h *NodeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	n, req, err := decodeNodeBody(r)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if n.NodeID == "" {
		n.NodeID = req.NodeID
	}
	if n.NodeID == "" {
		n.NodeID = chi.URLParam(r, "nodeID")
	}
	if n.NodeID == "" {
		n.NodeID = node.NewNodeID()
	}
	if n.CreatedAtISO == "" {
		n.CreatedAtISO = timeres.UTCNowISO()
	}
	if n.CapturedAtISO == "" {
		n.CapturedAtISO = req.CapturedAtISO
	}
	if n.CapturedAtISO == "" {
		n.CapturedAtISO = n.CreatedAtISO
	}
	if n.Status == "" {
		n.Status = node.StatusActive
	}
	localDay := timeres.ComputeLocalDay(n.CapturedAtISO)

	updated, providerResponse, err := h.dispatcher.Execute(r.Context(), userCtx.UserID, n, false)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.nodes.Save(r.Context(), userCtx.UserID, localDay, updated, req.RawTranscript); err != nil {
		common.RespondError(w, err)
		return
	}
	h.publishExecution(r, userCtx.UserID, updated, providerResponse != nil)

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                true,
		"node_id":           updated.NodeID,
		"node":              updated,
		"local_day":         localDay,
		"provider_response": providerResponse,
	})
}

// Execute handles POST /nodes/{nodeID}/execute. Unlike Complete, the node
// type must have an integration, and nothing is persisted here.
func (h *NodeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	n, _, err := decodeNodeBody(r)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	pathID := chi.URLParam(r, "nodeID")
	if pathID != "" && n.NodeID != "" && n.NodeID != pathID {
		common.RespondError(w, apperrors.NewValidationError("node_id in path does not match node payload"))
		return
	}
	if n.NodeID == "" {
		n.NodeID = pathID
	}

	updated, providerResponse, err := h.dispatcher.Execute(r.Context(), userCtx.UserID, n, true)
	if err != nil {
		h.publishExecution(r, userCtx.UserID, n, false)
		common.RespondError(w, err)
		return
	}
	h.publishExecution(r, userCtx.UserID, updated, true)

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                true,
		"node":              updated,
		"provider_response": providerResponse,
	})
}

// List handles GET /nodes?day=YYYY-MM-DD.
func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	day := r.URL.Query().Get("day")
	if day == "" {
		// caller's today; ComputeLocalDay falls back to UTC with no input
		day = timeres.ComputeLocalDay("")
	}

	nodes, err := h.nodes.QueryByDay(r.Context(), userCtx.UserID, day)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	h.respondNodeList(w, nodes)
}

// Active handles GET /nodes/active.
func (h *NodeHandler) Active(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	nodes, err := h.nodes.QueryActive(r.Context(), userCtx.UserID)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	h.respondNodeList(w, nodes)
}

// Delete handles DELETE /nodes/{nodeID}. The node's day partition is located
// first so the caller only needs the id.
func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	if nodeID == "" {
		common.RespondError(w, apperrors.NewValidationError("node_id is required"))
		return
	}

	localDay := r.URL.Query().Get("day")
	if localDay == "" {
		day, found, err := h.nodes.FindDay(r.Context(), userCtx.UserID, nodeID)
		if err != nil {
			common.RespondError(w, err)
			return
		}
		if !found {
			common.RespondError(w, apperrors.NewNotFoundError("node"))
			return
		}
		localDay = day
	}

	if err := h.nodes.Delete(r.Context(), userCtx.UserID, localDay, nodeID); err != nil {
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"node_id": nodeID,
	})
}

func (h *NodeHandler) respondNodeList(w http.ResponseWriter, nodes []*node.Node) {
	nodeIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.NodeID)
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"nodes":    nodes,
		"node_ids": nodeIDs,
		"count":    len(nodes),
	})
}

func (h *NodeHandler) publishExecution(r *http.Request, userID string, n *node.Node, success bool) {
	if h.publisher == nil || !node.ExecutableTypes[n.NodeType] {
		return
	}
	provider := dispatch.ProviderFor(n.NodeType)
	event := events.NewNodeExecuted(userID, n.NodeID, string(n.NodeType), string(provider), success)
	if err := h.publisher.Publish(r.Context(), event); err != nil {
		h.logger.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("eventType", event.EventType()),
		)
	}
}
