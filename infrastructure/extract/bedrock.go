// Package extract calls Bedrock's Converse API with forced tool use to turn
// a raw transcript into structured node candidates.
package extract

import (
	"context"
	"encoding/json"
	"time"

	"braindump/application/ports"
	"braindump/domain/node"
	apperrors "braindump/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// BedrockExtractor implements ports.NodeExtractor over the Converse API. The
// model is given one tool per node type and must call exactly one.
type BedrockExtractor struct {
	client  *bedrockruntime.Client
	modelID string
	logger  *zap.Logger
}

// NewBedrockExtractor creates a new BedrockExtractor.
func NewBedrockExtractor(client *bedrockruntime.Client, modelID string, logger *zap.Logger) *BedrockExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BedrockExtractor{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}
}

// Extract sends the transcript plus capture context and returns the tool
// input the model produced. An empty candidate list means the model answered
// with text instead of a tool call; the pipeline treats that as a fallback.
func (e *BedrockExtractor) Extract(ctx context.Context, req ports.ExtractionRequest) (*ports.ExtractionResult, error) {
	userPayload := map[string]interface{}{
		"transcript":    req.Transcript,
		"user_time_iso": req.UserTimeISO,
		"local_day":     req.LocalDay,
		"utc_offset":    req.Offset,
	}
	if req.UserLocation != "" {
		userPayload["user_location"] = req.UserLocation
	}
	if len(req.Contacts) > 0 {
		userPayload["contacts"] = req.Contacts
	}
	if len(req.SlackTargets.Channels) > 0 || len(req.SlackTargets.Users) > 0 {
		userPayload["slack_targets"] = map[string]interface{}{
			"channels": req.SlackTargets.Channels,
			"users":    req.SlackTargets.Users,
		}
	}

	userMessage, err := json.Marshal(userPayload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode extraction payload")
	}

	started := time.Now()
	resp, err := e.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: string(userMessage)},
				},
			},
		},
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		ToolConfig: &types.ToolConfiguration{
			Tools:      buildTools(),
			ToolChoice: &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(0),
			MaxTokens:   aws.Int32(4096),
		},
	})
	latencyMs := time.Since(started).Milliseconds()
	if err != nil {
		e.logger.Error("Bedrock converse failed",
			zap.Error(err),
			zap.String("modelID", e.modelID),
		)
		return nil, apperrors.NewProviderError("model invocation failed", err)
	}

	result := &ports.ExtractionResult{
		ModelID:   e.modelID,
		LatencyMs: latencyMs,
	}

	message, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return result, nil
	}
	for _, block := range message.Value.Content {
		toolUse, ok := block.(*types.ContentBlockMemberToolUse)
		if !ok {
			continue
		}
		var candidate map[string]interface{}
		if err := toolUse.Value.Input.UnmarshalSmithyDocument(&candidate); err != nil {
			e.logger.Warn("Undecodable tool input from model", zap.Error(err))
			continue
		}
		result.ToolName = aws.ToString(toolUse.Value.Name)
		result.Candidates = append(result.Candidates, candidate)
		break
	}

	e.logger.Info("Extraction complete",
		zap.String("modelID", e.modelID),
		zap.String("toolName", result.ToolName),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int64("latencyMs", latencyMs),
	)
	return result, nil
}

// timeSpecSchema is the shared shape of every time interpretation object.
func timeSpecSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"original_text":          map[string]interface{}{"type": "string"},
			"kind":                   map[string]interface{}{"type": "string", "enum": []string{"datetime", "date", "time_window", "relative", "unspecified"}},
			"resolved_start_iso":     map[string]interface{}{"type": "string"},
			"resolved_end_iso":       map[string]interface{}{"type": "string"},
			"needs_clarification":    map[string]interface{}{"type": "boolean"},
			"clarification_question": map[string]interface{}{"type": "string"},
			"resolution_notes":       map[string]interface{}{"type": "string"},
		},
		"required": []string{"original_text", "kind", "needs_clarification"},
	}
}

func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"schema_version": map[string]interface{}{
			"type":        "string",
			"description": "Must be exactly '" + node.SchemaVersion + "'",
		},
		"node_type": map[string]interface{}{"type": "string"},
		"title":     map[string]interface{}{"type": "string", "description": "Short summary for UI display (max 120 chars)"},
		"body":      map[string]interface{}{"type": "string", "description": "Cleaned version of transcript intent (max 4000 chars)"},
		"tags": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"status":     map[string]interface{}{"type": "string", "enum": []string{"active", "completed"}},
		"confidence": map[string]interface{}{"type": "number", "description": "Confidence in this interpretation (0.0 to 1.0)"},
		"evidence": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"quote": map[string]interface{}{"type": "string", "description": "Exact quote from transcript"},
				},
				"required": []string{"quote"},
			},
		},
		"time_interpretation": timeSpecSchema("How time references in the transcript were resolved"),
		"location_context": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"location_used":      map[string]interface{}{"type": "boolean"},
				"location_relevance": map[string]interface{}{"type": "string"},
			},
			"required": []string{"location_used"},
		},
		"global_warnings": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	}
}

var baseRequired = []string{"schema_version", "node_type", "title", "body", "tags", "status", "confidence", "evidence", "location_context"}

// toolDefinition couples a tool name with its payload schema.
type toolDefinition struct {
	name        string
	description string
	payloadKey  string
	payload     map[string]interface{}
	required    []string
}

func toolDefinitions() []toolDefinition {
	return []toolDefinition{
		{
			name:        "create_reminder_node",
			description: "Create a reminder node for time-triggered reminders.",
			payloadKey:  "reminder",
			payload: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"reminder_text":        map[string]interface{}{"type": "string"},
					"when":                 timeSpecSchema("When the reminder should fire"),
					"trigger_datetime_iso": map[string]interface{}{"type": "string"},
					"recurrence": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"pattern":   map[string]interface{}{"type": "string", "enum": []string{"none", "daily", "weekly", "monthly"}},
							"interval":  map[string]interface{}{"type": "integer"},
							"byweekday": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						},
						"required": []string{"pattern"},
					},
					"priority":               map[string]interface{}{"type": "string", "enum": []string{"low", "normal", "high"}},
					"snooze_minutes_default": map[string]interface{}{"type": "integer"},
				},
				"required": []string{"reminder_text", "when", "priority"},
			},
			required: []string{"reminder", "time_interpretation"},
		},
		{
			name:        "create_todo_node",
			description: "Create a todo node for tasks and action items.",
			payloadKey:  "todo",
			payload: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task":              map[string]interface{}{"type": "string"},
					"due":               timeSpecSchema("When the task is due, if mentioned"),
					"due_date_iso":      map[string]interface{}{"type": "string"},
					"due_datetime_iso":  map[string]interface{}{"type": "string"},
					"priority":          map[string]interface{}{"type": "string", "enum": []string{"low", "normal", "high"}},
					"status_detail":     map[string]interface{}{"type": "string", "enum": []string{"open", "done"}},
					"estimated_minutes": map[string]interface{}{"type": "integer"},
					"project":           map[string]interface{}{"type": "string"},
					"checklist":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"task", "priority", "status_detail"},
			},
			required: []string{"todo"},
		},
		{
			name:        "create_note_node",
			description: "Create a note node for capturing information, thoughts, or ideas.",
			payloadKey:  "note",
			payload: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content":          map[string]interface{}{"type": "string"},
					"category_hint":    map[string]interface{}{"type": "string", "enum": node.NoteCategoryHints},
					"pin":              map[string]interface{}{"type": "boolean"},
					"related_entities": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"content", "category_hint", "pin"},
			},
			required: []string{"note"},
		},
		{
			name:        "create_calendar_placeholder_node",
			description: "Create a calendar event placeholder for meetings and appointments.",
			payloadKey:  "calendar_placeholder",
			payload: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"intent":             map[string]interface{}{"type": "string"},
					"event_title":        map[string]interface{}{"type": "string"},
					"start":              timeSpecSchema("When the event starts"),
					"start_datetime_iso": map[string]interface{}{"type": "string"},
					"end_datetime_iso":   map[string]interface{}{"type": "string"},
					"duration_minutes":   map[string]interface{}{"type": "integer"},
					"location_text":      map[string]interface{}{"type": "string"},
					"attendees_text":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"intent", "event_title", "start"},
			},
			required: []string{"calendar_placeholder"},
		},
	}
}

// buildTools renders the tool definitions into Converse tool specs.
func buildTools() []types.Tool {
	defs := toolDefinitions()
	tools := make([]types.Tool, 0, len(defs))
	for _, def := range defs {
		properties := baseProperties()
		properties[def.payloadKey] = def.payload

		schema := map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   append(append([]string{}, baseRequired...), def.required...),
		}
		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(def.name),
				Description: aws.String(def.description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schema),
				},
			},
		})
	}
	return tools
}
