package dynamodb

import (
	"context"
	"time"

	"braindump/application/ports"
	apperrors "braindump/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const (
	contactsSK     = "settings#contacts"
	slackTargetsSK = "settings#slack_targets"
)

// SettingsRepository stores the per-user lookup maps the dispatcher uses to
// resolve loosely named recipients and Slack destinations.
type SettingsRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.SettingsRepository {
	return &SettingsRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type contactsItem struct {
	PK        string            `dynamodbav:"pk"`
	SK        string            `dynamodbav:"sk"`
	Type      string            `dynamodbav:"type"`
	Contacts  map[string]string `dynamodbav:"contacts"`
	CreatedAt string            `dynamodbav:"created_at,omitempty"`
	UpdatedAt string            `dynamodbav:"updated_at,omitempty"`
}

type slackTargetsItem struct {
	PK        string            `dynamodbav:"pk"`
	SK        string            `dynamodbav:"sk"`
	Type      string            `dynamodbav:"type"`
	Channels  map[string]string `dynamodbav:"channels"`
	Users     map[string]string `dynamodbav:"users"`
	CreatedAt string            `dynamodbav:"created_at,omitempty"`
	UpdatedAt string            `dynamodbav:"updated_at,omitempty"`
}

func (r *SettingsRepository) getItem(ctx context.Context, userID, sk string, out interface{}) (bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"pk": nodePK(userID),
		"sk": sk,
	})
	if err != nil {
		return false, apperrors.NewDatabaseError("marshal settings key", err)
	}

	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		r.logger.Error("Failed to get settings item", zap.Error(err), zap.String("sk", sk))
		return false, apperrors.NewDatabaseError("get settings", err)
	}
	if resp.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return false, apperrors.NewDatabaseError("unmarshal settings", err)
	}
	return true, nil
}

func (r *SettingsRepository) putItem(ctx context.Context, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal settings", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return apperrors.NewDatabaseError("put settings", err)
	}
	return nil
}

// GetContacts returns the user's name-to-email map, empty when never set.
func (r *SettingsRepository) GetContacts(ctx context.Context, userID string) (map[string]string, error) {
	var item contactsItem
	found, err := r.getItem(ctx, userID, contactsSK, &item)
	if err != nil {
		return nil, err
	}
	if !found || item.Contacts == nil {
		return map[string]string{}, nil
	}
	return item.Contacts, nil
}

// PutContacts replaces the contact map, preserving created_at on rewrite.
func (r *SettingsRepository) PutContacts(ctx context.Context, userID string, contacts map[string]string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var existing contactsItem
	found, err := r.getItem(ctx, userID, contactsSK, &existing)
	if err != nil {
		return err
	}
	createdAt := now
	if found && existing.CreatedAt != "" {
		createdAt = existing.CreatedAt
	}

	if contacts == nil {
		contacts = map[string]string{}
	}
	item := contactsItem{
		PK:        nodePK(userID),
		SK:        contactsSK,
		Type:      "contacts",
		Contacts:  contacts,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if err := r.putItem(ctx, item); err != nil {
		return err
	}

	r.logger.Info("Stored contacts", zap.Int("count", len(contacts)))
	return nil
}

// GetSlackTargets returns the channel and user maps, empty when never set.
func (r *SettingsRepository) GetSlackTargets(ctx context.Context, userID string) (ports.SlackTargets, error) {
	var item slackTargetsItem
	found, err := r.getItem(ctx, userID, slackTargetsSK, &item)
	if err != nil {
		return ports.SlackTargets{}, err
	}
	targets := ports.SlackTargets{
		Channels: map[string]string{},
		Users:    map[string]string{},
	}
	if found {
		if item.Channels != nil {
			targets.Channels = item.Channels
		}
		if item.Users != nil {
			targets.Users = item.Users
		}
	}
	return targets, nil
}

// PutSlackTargets replaces the slack target maps, preserving created_at.
func (r *SettingsRepository) PutSlackTargets(ctx context.Context, userID string, targets ports.SlackTargets) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var existing slackTargetsItem
	found, err := r.getItem(ctx, userID, slackTargetsSK, &existing)
	if err != nil {
		return err
	}
	createdAt := now
	if found && existing.CreatedAt != "" {
		createdAt = existing.CreatedAt
	}

	if targets.Channels == nil {
		targets.Channels = map[string]string{}
	}
	if targets.Users == nil {
		targets.Users = map[string]string{}
	}
	item := slackTargetsItem{
		PK:        nodePK(userID),
		SK:        slackTargetsSK,
		Type:      "slack_targets",
		Channels:  targets.Channels,
		Users:     targets.Users,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if err := r.putItem(ctx, item); err != nil {
		return err
	}

	r.logger.Info("Stored slack targets",
		zap.Int("channels", len(targets.Channels)),
		zap.Int("users", len(targets.Users)),
	)
	return nil
}
