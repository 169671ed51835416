package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"braindump/application/ports"
	"braindump/domain/node"
	"braindump/domain/validators"
)

type stubExtractor struct {
	result *ports.ExtractionResult
	err    error
}

func (s *stubExtractor) Extract(_ context.Context, _ ports.ExtractionRequest) (*ports.ExtractionResult, error) {
	return s.result, s.err
}

func newTestPipeline(extractor ports.NodeExtractor) *Pipeline {
	return NewPipeline(extractor, validators.NewNodeValidator(), nil, nil, zap.NewNop())
}

func reminderCandidate(resolvedStart interface{}, needsClarification bool) map[string]interface{} {
	return map[string]interface{}{
		"schema_version": node.SchemaVersion,
		"node_type":      "reminder",
		"title":          "Call mom",
		"body":           "Call mom tomorrow at 7",
		"tags":           []interface{}{},
		"status":         "active",
		"confidence":     0.9,
		"evidence": []interface{}{
			map[string]interface{}{"quote": "remind me to call mom tomorrow at 7"},
		},
		"location_context": map[string]interface{}{"location_used": false},
		"reminder": map[string]interface{}{
			"reminder_text": "Call mom",
			"when": map[string]interface{}{
				"original_text":       "tomorrow at 7",
				"kind":                "datetime",
				"resolved_start_iso":  resolvedStart,
				"needs_clarification": needsClarification,
			},
			"trigger_datetime_iso": nil,
			"priority":             "normal",
		},
	}
}

func TestNormalizeAssignsDefaultOffset(t *testing.T) {
	p := newTestPipeline(nil)
	candidate := map[string]interface{}{
		"todo": map[string]interface{}{
			"due_datetime_iso": "2026-01-13T07:00:00",
			"due_date_iso":     "2026-01-13",
		},
	}

	normalized, warnings := p.Normalize(candidate, "-05:00")

	assert.Empty(t, warnings)
	todo := normalized["todo"].(map[string]interface{})
	assert.Equal(t, "2026-01-13T07:00:00-05:00", todo["due_datetime_iso"])
	assert.Equal(t, "2026-01-13", todo["due_date_iso"])

	// The input map must not be mutated.
	original := candidate["todo"].(map[string]interface{})
	assert.Equal(t, "2026-01-13T07:00:00", original["due_datetime_iso"])
}

func TestNormalizeUnparseableBecomesNullWithWarning(t *testing.T) {
	p := newTestPipeline(nil)
	candidate := map[string]interface{}{
		"calendar_placeholder": map[string]interface{}{
			"start_datetime_iso": "sometime next week",
		},
	}

	normalized, warnings := p.Normalize(candidate, "-05:00")

	cal := normalized["calendar_placeholder"].(map[string]interface{})
	assert.Nil(t, cal["start_datetime_iso"])
	assert.Contains(t, warnings, "Could not parse start_datetime_iso: sometime next week")
}

func TestNormalizeReminderDateOnlyDefaultsTo0900(t *testing.T) {
	p := newTestPipeline(nil)
	candidate := reminderCandidate("2026-01-13", false)

	normalized, warnings := p.Normalize(candidate, "-05:00")

	reminder := normalized["reminder"].(map[string]interface{})
	assert.Equal(t, "2026-01-13T09:00:00-05:00", reminder["trigger_datetime_iso"])

	defaulted := 0
	for _, w := range warnings {
		if w == DefaultedReminderWarning {
			defaulted++
		}
	}
	assert.Equal(t, 1, defaulted, "exactly one defaulted warning")
}

func TestNormalizeReminderResolvedDatetimePromoted(t *testing.T) {
	p := newTestPipeline(nil)
	candidate := reminderCandidate("2026-01-13T19:00:00", false)

	normalized, warnings := p.Normalize(candidate, "-05:00")

	reminder := normalized["reminder"].(map[string]interface{})
	assert.Equal(t, "2026-01-13T19:00:00-05:00", reminder["trigger_datetime_iso"])
	assert.NotContains(t, warnings, DefaultedReminderWarning)
}

func TestNormalizeReminderHonorsNeedsClarification(t *testing.T) {
	p := newTestPipeline(nil)
	candidate := reminderCandidate("2026-01-13", true)

	normalized, warnings := p.Normalize(candidate, "-05:00")

	reminder := normalized["reminder"].(map[string]interface{})
	assert.Nil(t, reminder["trigger_datetime_iso"])
	assert.Empty(t, warnings)
}

func TestIngestAlwaysReturnsWellFormedNode(t *testing.T) {
	tests := []struct {
		name      string
		extractor ports.NodeExtractor
	}{
		{"extractor error", &stubExtractor{err: errors.New("bedrock timeout")}},
		{"nil result", &stubExtractor{}},
		{"no candidates", &stubExtractor{result: &ports.ExtractionResult{}}},
		{
			"malformed candidate",
			&stubExtractor{result: &ports.ExtractionResult{
				Candidates: []map[string]interface{}{{"node_type": "garbage"}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.extractor)

			result := p.Ingest(context.Background(), "u1", "buy milk", "2026-01-12T17:00:00-05:00", "")

			require.Len(t, result.Nodes, 1)
			n := result.Nodes[0]
			assert.Equal(t, node.TypeNote, n.NodeType)
			assert.Equal(t, node.FallbackConfidence, n.Confidence)
			assert.Equal(t, node.SchemaVersion, n.SchemaVersion)
			assert.NotEmpty(t, n.NodeID)
			require.NotNil(t, n.ParseDebug)
			assert.True(t, n.ParseDebug.FallbackUsed)
			assert.NotEmpty(t, n.GlobalWarnings)
			assert.Equal(t, "2026-01-12", result.LocalDay)
			assert.Equal(t, "-05:00", result.Offset)
		})
	}
}

func TestIngestFallbackWarningsNameTheCause(t *testing.T) {
	p := newTestPipeline(&stubExtractor{err: errors.New("bedrock timeout")})

	result := p.Ingest(context.Background(), "u1", "buy milk", "2026-01-12T17:00:00-05:00", "")

	require.Len(t, result.Nodes, 1)
	n := result.Nodes[0]
	assert.Contains(t, n.GlobalWarnings, "Model did not return a tool call - using fallback")
	assert.Contains(t, n.GlobalWarnings, "Bedrock call failed: bedrock timeout")
}

func TestIngestNoToolCallWarnsFallback(t *testing.T) {
	p := newTestPipeline(&stubExtractor{result: &ports.ExtractionResult{}})

	result := p.Ingest(context.Background(), "u1", "buy milk", "2026-01-12T17:00:00-05:00", "")

	require.Len(t, result.Nodes, 1)
	n := result.Nodes[0]
	assert.Contains(t, n.GlobalWarnings, "Model did not return a tool call - using fallback")

	found := false
	for _, w := range n.GlobalWarnings {
		if strings.Contains(w, "Bedrock call failed") {
			found = true
		}
	}
	assert.False(t, found)
}

func TestIngestReminderScenario(t *testing.T) {
	// "remind me to call mom tomorrow at 7" captured at 17:00 on Jan 12:
	// the model resolves tomorrow's date but flags AM/PM ambiguity.
	candidate := reminderCandidate("2026-01-13", false)
	extractor := &stubExtractor{result: &ports.ExtractionResult{
		Candidates: []map[string]interface{}{candidate},
		ModelID:    "model-1",
		LatencyMs:  120,
		ToolName:   "emit_node",
	}}
	p := newTestPipeline(extractor)

	result := p.Ingest(context.Background(), "u1", "remind me to call mom tomorrow at 7", "2026-01-12T17:00:00-05:00", "")

	require.Len(t, result.Nodes, 1)
	n := result.Nodes[0]
	assert.Equal(t, node.TypeReminder, n.NodeType)
	require.NotNil(t, n.Reminder)
	require.NotNil(t, n.Reminder.TriggerDatetimeISO)
	assert.True(t, strings.HasPrefix(*n.Reminder.TriggerDatetimeISO, "2026-01-13"))
	assert.Contains(t, n.GlobalWarnings, DefaultedReminderWarning)

	assert.Equal(t, "2026-01-12T17:00:00-05:00", n.CapturedAtISO)
	assert.Equal(t, "-05:00", n.Timezone)
	require.NotNil(t, n.ParseDebug)
	assert.Equal(t, "model-1", n.ParseDebug.ModelID)
	assert.False(t, n.ParseDebug.FallbackUsed)
}

func TestIngestMultipleCandidates(t *testing.T) {
	extractor := &stubExtractor{result: &ports.ExtractionResult{
		Candidates: []map[string]interface{}{
			reminderCandidate("2026-01-13", false),
			{"node_type": "nonsense"},
		},
	}}
	p := newTestPipeline(extractor)

	result := p.Ingest(context.Background(), "u1", "two things", "2026-01-12T17:00:00-05:00", "")

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, node.TypeReminder, result.Nodes[0].NodeType)
	assert.Equal(t, node.TypeNote, result.Nodes[1].NodeType)
	assert.True(t, result.Nodes[1].ParseDebug.FallbackUsed)
}
