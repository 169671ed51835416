package dynamodb

import (
	"context"
	"fmt"
	"time"

	"braindump/application/ports"
	"braindump/domain/credential"
	apperrors "braindump/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// OAuth state records expire after ten minutes; a callback arriving later
// than that is treated as unknown state.
const oauthStateTTL = 10 * time.Minute

// OAuthStateRepository stores short-lived state tokens for in-flight OAuth
// authorization flows. State is the partition key so the callback can look it
// up without knowing the user.
type OAuthStateRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewOAuthStateRepository creates a new OAuthStateRepository.
func NewOAuthStateRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.OAuthStateRepository {
	return &OAuthStateRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type oauthStateItem struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	UserID    string `dynamodbav:"user_id"`
	Provider  string `dynamodbav:"provider"`
	CreatedAt string `dynamodbav:"created_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

func oauthStatePK(state string) string {
	return fmt.Sprintf("oauth_state#%s", state)
}

// Create records a new state token for the user and provider.
func (r *OAuthStateRepository) Create(ctx context.Context, userID, state string, provider credential.Provider) error {
	if state == "" {
		return apperrors.NewValidationError("state is required")
	}

	now := time.Now().UTC()
	item := oauthStateItem{
		PK:        oauthStatePK(state),
		SK:        "state",
		UserID:    userID,
		Provider:  string(provider),
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(oauthStateTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal oauth state", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return apperrors.NewDatabaseError("put oauth state", err)
	}
	return nil
}

// Consume looks up and deletes the state record in one pass. TTL deletion in
// DynamoDB is lazy, so expiry is also checked here.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (string, credential.Provider, bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"pk": oauthStatePK(state),
		"sk": "state",
	})
	if err != nil {
		return "", "", false, apperrors.NewDatabaseError("marshal oauth state key", err)
	}

	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          key,
		ReturnValues: "ALL_OLD",
	})
	if err != nil {
		r.logger.Error("Failed to consume oauth state", zap.Error(err))
		return "", "", false, apperrors.NewDatabaseError("consume oauth state", err)
	}
	if out.Attributes == nil {
		return "", "", false, nil
	}

	var item oauthStateItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return "", "", false, apperrors.NewDatabaseError("unmarshal oauth state", err)
	}
	if item.ExpiresAt > 0 && time.Now().Unix() >= item.ExpiresAt {
		return "", "", false, nil
	}
	return item.UserID, credential.Provider(item.Provider), true, nil
}
