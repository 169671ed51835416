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

// Retired refresh token hashes stay queryable for 30 days, then TTL out.
const retiredTokenTTL = 30 * 24 * time.Hour

// CredentialRepository stores integration token material in the same table as
// nodes, under sk "integration#<provider>". Token values never appear in logs.
type CredentialRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.CredentialRepository {
	return &CredentialRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// credentialItem wraps a credential with its table keys.
type credentialItem struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	credential.Credential
}

// retiredTokenItem records the hash of a superseded refresh token.
type retiredTokenItem struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	Provider  string `dynamodbav:"provider"`
	RetiredAt string `dynamodbav:"retired_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

func credentialSK(provider credential.Provider) string {
	return fmt.Sprintf("integration#%s", provider)
}

// Get returns the stored credential, or nil when the user has never connected
// the provider.
func (r *CredentialRepository) Get(ctx context.Context, userID string, provider credential.Provider) (*credential.Credential, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"pk": nodePK(userID),
		"sk": credentialSK(provider),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("marshal credential key", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("Failed to get credential",
			zap.Error(err),
			zap.String("provider", string(provider)),
		)
		return nil, apperrors.NewDatabaseError("get credential", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item credentialItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal credential", err)
	}
	if item.Credential.Provider == "" {
		item.Credential.Provider = provider
	}
	return &item.Credential, nil
}

// Put overwrites the stored credential.
func (r *CredentialRepository) Put(ctx context.Context, userID string, cred *credential.Credential) error {
	if cred == nil || !credential.IsValidProvider(cred.Provider) {
		return apperrors.NewValidationError("credential with a known provider is required")
	}

	item := credentialItem{
		PK:         nodePK(userID),
		SK:         credentialSK(cred.Provider),
		Credential: *cred,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal credential", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return apperrors.NewDatabaseError("put credential", err)
	}

	r.logger.Info("Stored credential",
		zap.String("provider", string(cred.Provider)),
		zap.String("tokenHint", cred.TokenHint),
	)
	return nil
}

// RetireRefreshToken writes a TTL-bound row recording that a refresh token
// hash has been superseded by rotation.
func (r *CredentialRepository) RetireRefreshToken(ctx context.Context, userID string, provider credential.Provider, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}

	now := time.Now().UTC()
	item := retiredTokenItem{
		PK:        nodePK(userID),
		SK:        fmt.Sprintf("retired#%s#%s", provider, tokenHash),
		Provider:  string(provider),
		RetiredAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(retiredTokenTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal retired token", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return apperrors.NewDatabaseError("retire refresh token", err)
	}
	return nil
}

// Delete removes the credential. Called only on explicit disconnect.
func (r *CredentialRepository) Delete(ctx context.Context, userID string, provider credential.Provider) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"pk": nodePK(userID),
		"sk": credentialSK(provider),
	})
	if err != nil {
		return apperrors.NewDatabaseError("marshal credential key", err)
	}

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	}); err != nil {
		return apperrors.NewDatabaseError("delete credential", err)
	}

	r.logger.Info("Deleted credential", zap.String("provider", string(provider)))
	return nil
}
