package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"braindump/application/ports"
	apperrors "braindump/pkg/errors"

	"braindump/domain/node"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Raw transcripts are stored for diagnostics only; cap them so a single
// item never approaches the DynamoDB item size limit.
const maxStoredTranscript = 10000

// NodeRepository implements ports.NodeRepository on a single DynamoDB table.
// Items are keyed pk="user#<id>", sk="day#<localDay>#node#<nodeID>" so one
// query with an sk prefix returns a full day.
type NodeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewNodeRepository creates a new NodeRepository.
func NewNodeRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.NodeRepository {
	return &NodeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// nodeItem is the DynamoDB item structure for a captured node.
type nodeItem struct {
	PK            string     `dynamodbav:"pk"`
	SK            string     `dynamodbav:"sk"`
	NodeID        string     `dynamodbav:"node_id"`
	NodeType      string     `dynamodbav:"node_type"`
	CreatedAtISO  string     `dynamodbav:"created_at_iso"`
	CapturedAtISO string     `dynamodbav:"captured_at_iso"`
	LocalDay      string     `dynamodbav:"local_day"`
	Status        string     `dynamodbav:"status"`
	RawTranscript string     `dynamodbav:"raw_transcript"`
	Node          *node.Node `dynamodbav:"node"`
}

func nodePK(userID string) string {
	return fmt.Sprintf("user#%s", userID)
}

func nodeSK(localDay, nodeID string) string {
	return fmt.Sprintf("day#%s#node#%s", localDay, nodeID)
}

// Save writes the node document. The first write for a key is conditional so
// concurrent captures cannot interleave; a replay of the same node falls back
// to an unconditional overwrite.
func (r *NodeRepository) Save(ctx context.Context, userID, localDay string, n *node.Node, rawTranscript string) error {
	if n == nil || n.NodeID == "" {
		return apperrors.NewValidationError("node with node_id is required")
	}

	if len(rawTranscript) > maxStoredTranscript {
		rawTranscript = rawTranscript[:maxStoredTranscript]
	}

	item := nodeItem{
		PK:            nodePK(userID),
		SK:            nodeSK(localDay, n.NodeID),
		NodeID:        n.NodeID,
		NodeType:      string(n.NodeType),
		CreatedAtISO:  n.CreatedAtISO,
		CapturedAtISO: n.CapturedAtISO,
		LocalDay:      localDay,
		Status:        string(n.Status),
		RawTranscript: rawTranscript,
		Node:          n,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal node", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk) AND attribute_not_exists(sk)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			r.logger.Error("Failed to save node",
				zap.Error(err),
				zap.String("nodeID", n.NodeID),
				zap.String("localDay", localDay),
			)
			return apperrors.NewDatabaseError("save node", err)
		}
		// Item already exists: overwrite with the latest version.
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		})
		if err != nil {
			return apperrors.NewDatabaseError("overwrite node", err)
		}
	}

	r.logger.Info("Saved node",
		zap.String("nodeID", n.NodeID),
		zap.String("nodeType", string(n.NodeType)),
		zap.String("localDay", localDay),
	)
	return nil
}

// QueryByDay returns every node captured on the given local day, in sk order.
func (r *NodeRepository) QueryByDay(ctx context.Context, userID, localDay string) ([]*node.Node, error) {
	prefix := fmt.Sprintf("day#%s#node#", localDay)
	return r.queryNodes(ctx, userID, prefix, nil)
}

// QueryActive returns all nodes with status active regardless of day.
func (r *NodeRepository) QueryActive(ctx context.Context, userID string) ([]*node.Node, error) {
	filter := expression.Name("status").Equal(expression.Value(string(node.StatusActive)))
	return r.queryNodes(ctx, userID, "day#", &filter)
}

func (r *NodeRepository) queryNodes(ctx context.Context, userID, skPrefix string, filter *expression.ConditionBuilder) ([]*node.Node, error) {
	keyCond := expression.Key("pk").Equal(expression.Value(nodePK(userID))).
		And(expression.Key("sk").BeginsWith(skPrefix))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build node query", err)
	}

	var nodes []*node.Node
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			r.logger.Error("Failed to query nodes",
				zap.Error(err),
				zap.String("skPrefix", skPrefix),
			)
			return nil, apperrors.NewDatabaseError("query nodes", err)
		}

		for _, raw := range out.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping undecodable node item", zap.Error(err))
				continue
			}
			if item.Node == nil {
				continue
			}
			nodes = append(nodes, item.Node)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return nodes, nil
}

// FindDay locates the local day a node is stored under by scanning the
// user's day partitions for a matching node_id.
func (r *NodeRepository) FindDay(ctx context.Context, userID, nodeID string) (string, bool, error) {
	keyCond := expression.Key("pk").Equal(expression.Value(nodePK(userID))).
		And(expression.Key("sk").BeginsWith("day#"))
	filter := expression.Name("node_id").Equal(expression.Value(nodeID))
	proj := expression.NamesList(expression.Name("local_day"), expression.Name("node_id"))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithFilter(filter).
		WithProjection(proj).
		Build()
	if err != nil {
		return "", false, apperrors.NewDatabaseError("build node lookup", err)
	}

	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return "", false, apperrors.NewDatabaseError("find node day", err)
		}

		for _, raw := range out.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			if item.NodeID == nodeID && item.LocalDay != "" {
				return item.LocalDay, true, nil
			}
		}

		if out.LastEvaluatedKey == nil {
			return "", false, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

// Delete removes one node item. Deleting a missing node is a no-op.
func (r *NodeRepository) Delete(ctx context.Context, userID, localDay, nodeID string) error {
	if strings.TrimSpace(nodeID) == "" {
		return apperrors.NewValidationError("node_id is required")
	}

	key, err := attributevalue.MarshalMap(map[string]string{
		"pk": nodePK(userID),
		"sk": nodeSK(localDay, nodeID),
	})
	if err != nil {
		return apperrors.NewDatabaseError("marshal node key", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		return apperrors.NewDatabaseError("delete node", err)
	}

	r.logger.Info("Deleted node",
		zap.String("nodeID", nodeID),
		zap.String("localDay", localDay),
	)
	return nil
}
