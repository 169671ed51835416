package dynamodb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braindump/domain/credential"
	"braindump/domain/node"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "user#u1", nodePK("u1"))
	assert.Equal(t, "day#2026-03-10#node#n1", nodeSK("2026-03-10", "n1"))
	assert.Equal(t, "integration#google", credentialSK(credential.ProviderGoogle))
	assert.Equal(t, "oauth_state#abc", oauthStatePK("abc"))
}

func TestNodeItemMarshalsTopLevelQueryFields(t *testing.T) {
	n := &node.Node{
		NodeID:        "n1",
		NodeType:      node.TypeReminder,
		Title:         "Call dentist",
		Body:          "call the dentist",
		Status:        node.StatusActive,
		CreatedAtISO:  "2026-03-10T12:00:00Z",
		CapturedAtISO: "2026-03-10T11:59:00Z",
	}
	item := nodeItem{
		PK:            nodePK("u1"),
		SK:            nodeSK("2026-03-10", n.NodeID),
		NodeID:        n.NodeID,
		NodeType:      string(n.NodeType),
		CreatedAtISO:  n.CreatedAtISO,
		CapturedAtISO: n.CapturedAtISO,
		LocalDay:      "2026-03-10",
		Status:        string(n.Status),
		Node:          n,
	}

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	// status and node_id live at the top level so queries can filter
	// without deserializing the node document
	assert.Equal(t, &types.AttributeValueMemberS{Value: "active"}, av["status"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "n1"}, av["node_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2026-03-10"}, av["local_day"])

	doc, ok := av["node"].(*types.AttributeValueMemberM)
	require.True(t, ok)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "reminder"}, doc.Value["node_type"])

	var back nodeItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &back))
	require.NotNil(t, back.Node)
	assert.Equal(t, "Call dentist", back.Node.Title)
}

func TestCredentialItemNeverMarshalsRawTokenToJSONTags(t *testing.T) {
	item := credentialItem{
		PK: nodePK("u1"),
		SK: credentialSK(credential.ProviderSlack),
		Credential: credential.Credential{
			Provider:    credential.ProviderSlack,
			AccessToken: "xoxp-secret",
			TokenHint:   "cret",
		},
	}

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	// the access token is stored, but only under its dynamodbav name
	assert.Equal(t, &types.AttributeValueMemberS{Value: "xoxp-secret"}, av["access_token"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "cret"}, av["token_hint"])
}
