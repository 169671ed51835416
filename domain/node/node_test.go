package node

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeWarningsDeduplicates(t *testing.T) {
	merged := MergeWarnings(
		[]string{"Schema warning: title too long", "Could not parse due: x"},
		[]string{"Schema warning: title too long", "", "Defaulted reminder time to 09:00 local"},
	)

	assert.Len(t, merged, 3)
	assert.Contains(t, merged, "Schema warning: title too long")
	assert.Contains(t, merged, "Could not parse due: x")
	assert.Contains(t, merged, "Defaulted reminder time to 09:00 local")
}

func TestMergeWarningsEmpty(t *testing.T) {
	assert.Nil(t, MergeWarnings(nil, nil))
	assert.Nil(t, MergeWarnings([]string{""}, []string{""}))
}

func TestAddWarningsIsIdempotent(t *testing.T) {
	n := &Node{}
	n.AddWarnings("Validation error: missing field: title")
	n.AddWarnings("Validation error: missing field: title")
	assert.Len(t, n.GlobalWarnings, 1)
}

func TestNewFallbackNote(t *testing.T) {
	transcript := strings.Repeat("call mom tomorrow ", 20)
	n := NewFallbackNote(transcript, "", "", []string{"Validation error: node_type invalid"})

	assert.Equal(t, TypeNote, n.NodeType)
	assert.Equal(t, FallbackConfidence, n.Confidence)
	assert.Equal(t, StatusActive, n.Status)
	require.NotNil(t, n.Note)
	assert.Equal(t, "other", n.Note.CategoryHint)
	assert.False(t, n.Note.Pin)
	require.Len(t, n.Evidence, 1)
	assert.LessOrEqual(t, len(n.Evidence[0].Quote), MaxQuoteLen)
	assert.Contains(t, n.GlobalWarnings, "Validation error: node_type invalid")
}

func TestFallbackNoteEmptyTranscript(t *testing.T) {
	n := NewFallbackNote("", "", "", nil)
	require.Len(t, n.Evidence, 1)
	assert.NotEmpty(t, n.Evidence[0].Quote)
	assert.Equal(t, "Captured Note", n.Title)
}

func TestFallbackNoteKeepsCandidateTitle(t *testing.T) {
	n := NewFallbackNote("buy milk", "Groceries", "buy milk and eggs", nil)
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, "buy milk and eggs", n.Body)
	assert.Equal(t, "buy milk and eggs", n.Evidence[0].Quote)
}

func TestPayloadKeyMatchesNodeType(t *testing.T) {
	n := &Node{
		SchemaVersion: SchemaVersion,
		NodeType:      TypeReminder,
		Reminder:      &ReminderPayload{ReminderText: "call mom"},
	}
	assert.True(t, n.HasPayloadFor(TypeReminder))
	assert.False(t, n.HasPayloadFor(TypeTodo))
	assert.Equal(t, 1, n.PayloadCount())

	data, err := json.Marshal(n)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "reminder")
	assert.NotContains(t, raw, "todo")
}

func TestExecutableTypes(t *testing.T) {
	assert.True(t, ExecutableTypes[TypeCalendarPlaceholder])
	assert.True(t, ExecutableTypes[TypeSlackMessage])
	assert.True(t, ExecutableTypes[TypeMsEmail])
	assert.False(t, ExecutableTypes[TypeNote])
	assert.False(t, ExecutableTypes[TypeReminder])
	assert.False(t, ExecutableTypes[TypeTodo])
}

func TestNewNodeIDShape(t *testing.T) {
	id := NewNodeID()
	assert.True(t, strings.HasPrefix(id, "node_"))
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
	assert.NotEqual(t, id, NewNodeID())
}
