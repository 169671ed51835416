// Package handlers implements the HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"braindump/application/pipeline"
	"braindump/application/ports"
	"braindump/domain/events"
	"braindump/pkg/auth"
	"braindump/pkg/common"
	apperrors "braindump/pkg/errors"
	"braindump/pkg/utils"

	"go.uber.org/zap"
)

// IngestHandler turns transcripts into stored nodes.
type IngestHandler struct {
	pipeline  *pipeline.Pipeline
	nodes     ports.NodeRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(
	p *pipeline.Pipeline,
	nodes ports.NodeRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *IngestHandler {
	return &IngestHandler{
		pipeline:  p,
		nodes:     nodes,
		publisher: publisher,
		logger:    logger,
	}
}

// IngestRequest is the body for POST /ingest.
type IngestRequest struct {
	Transcript    string `json:"transcript" validate:"required,min=1"`
	UserTimeISO   string `json:"user_time_iso" validate:"required"`
	CapturedAtISO string `json:"captured_at_iso,omitempty"`
	UserLocation  string `json:"user_location,omitempty"`
}

// Ingest handles POST /ingest.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, apperrors.NewUnauthorizedError(""))
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, apperrors.NewValidationError("invalid JSON in request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	result := h.pipeline.Ingest(r.Context(), userCtx.UserID, req.Transcript, req.UserTimeISO, req.UserLocation)

	for _, n := range result.Nodes {
		if req.CapturedAtISO != "" {
			n.CapturedAtISO = req.CapturedAtISO
		}
		if err := h.nodes.Save(r.Context(), userCtx.UserID, result.LocalDay, n, req.Transcript); err != nil {
			h.logger.Error("Failed to persist ingested node",
				zap.Error(err),
				zap.String("nodeID", n.NodeID),
			)
			common.RespondError(w, err)
			return
		}
		fallbackUsed := n.ParseDebug != nil && n.ParseDebug.FallbackUsed
		h.publish(r, events.NewNodeCaptured(
			userCtx.UserID, n.NodeID, string(n.NodeType), result.LocalDay, fallbackUsed,
		))
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"nodes":      result.Nodes,
		"count":      len(result.Nodes),
		"local_day":  result.LocalDay,
		"utc_offset": result.Offset,
	})
}

func (h *IngestHandler) publish(r *http.Request, event events.DomainEvent) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(r.Context(), event); err != nil {
		h.logger.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("eventType", event.EventType()),
		)
	}
}
