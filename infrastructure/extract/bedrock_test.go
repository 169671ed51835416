package extract

import (
	"testing"

	"braindump/domain/node"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildToolsCoversAllCandidateTypes(t *testing.T) {
	tools := buildTools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		spec, ok := tool.(*types.ToolMemberToolSpec)
		require.True(t, ok)
		names = append(names, aws.ToString(spec.Value.Name))
		require.NotNil(t, spec.Value.InputSchema)
	}
	assert.Equal(t, []string{
		"create_reminder_node",
		"create_todo_node",
		"create_note_node",
		"create_calendar_placeholder_node",
	}, names)
}

func TestToolDefinitionsRequireBaseAndPayload(t *testing.T) {
	for _, def := range toolDefinitions() {
		payload := def.payload["properties"].(map[string]interface{})
		assert.NotEmpty(t, payload, def.name)
		assert.Contains(t, def.required, def.payloadKey, def.name)
	}
}

func TestBasePropertiesNameTheSchemaVersion(t *testing.T) {
	props := baseProperties()

	version := props["schema_version"].(map[string]interface{})
	assert.Contains(t, version["description"], node.SchemaVersion)

	for _, field := range baseRequired {
		assert.Contains(t, props, field)
	}
}
