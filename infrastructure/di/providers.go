// Package di wires infrastructure into the application layer.
package di

import (
	"context"
	"fmt"

	"braindump/application/credentials"
	"braindump/application/dispatch"
	"braindump/application/pipeline"
	"braindump/application/ports"
	"braindump/domain/validators"
	"braindump/infrastructure/config"
	"braindump/infrastructure/extract"
	"braindump/infrastructure/messaging/eventbridge"
	"braindump/infrastructure/oauth"
	"braindump/infrastructure/observability"
	"braindump/infrastructure/persistence/dynamodb"
	"braindump/infrastructure/providers"
	"braindump/interfaces/http/rest"
	"braindump/interfaces/http/rest/handlers"
	"braindump/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// Container holds every wired component. Build once at startup.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	NodeRepository       ports.NodeRepository
	CredentialRepository ports.CredentialRepository
	SettingsRepository   ports.SettingsRepository
	OAuthStateRepository ports.OAuthStateRepository

	Cache     ports.Cache
	Metrics   ports.MetricsRecorder
	Publisher ports.EventPublisher
	Refresher *oauth.Refresher
	Broker    *credentials.Broker

	Pipeline   *pipeline.Pipeline
	Dispatcher *dispatch.Dispatcher

	Router *rest.Router
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// NewContainer builds the full dependency graph.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)

	nodeRepo := dynamodb.NewNodeRepository(dynamoClient, cfg.NodesTable, logger)
	credRepo := dynamodb.NewCredentialRepository(dynamoClient, cfg.IntegrationsTable, logger)
	settingsRepo := dynamodb.NewSettingsRepository(dynamoClient, cfg.IntegrationsTable, logger)
	stateRepo := dynamodb.NewOAuthStateRepository(dynamoClient, cfg.IntegrationsTable, logger)

	cache := NewInMemoryCache()

	var metrics ports.MetricsRecorder = observability.NoopMetrics{}
	if cfg.EnableMetrics {
		metrics = observability.NewCloudWatchMetrics(awscloudwatch.NewFromConfig(awsCfg), logger)
	}

	var publisher ports.EventPublisher
	if cfg.EnableEvents && cfg.EventBusName != "" {
		publisher = eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
	}

	refresher := oauth.NewRefresher(oauth.Config{
		GoogleClientID:        cfg.GoogleClientID,
		GoogleClientSecret:    cfg.GoogleClientSecret,
		MicrosoftClientID:     cfg.MicrosoftClientID,
		MicrosoftClientSecret: cfg.MicrosoftClientSecret,
		MicrosoftTenant:       cfg.MicrosoftTenant,
		MicrosoftScopes:       cfg.MicrosoftScopes,
		SlackClientID:         cfg.SlackClientID,
		SlackClientSecret:     cfg.SlackClientSecret,
	}, logger)

	broker := credentials.NewBroker(credRepo, refresher, cache, logger)

	extractor := extract.NewBedrockExtractor(
		awsbedrock.NewFromConfig(awsCfg),
		cfg.BedrockModelID,
		logger,
	)

	ingestPipeline := pipeline.NewPipeline(
		extractor,
		validators.NewNodeValidator(),
		settingsRepo,
		metrics,
		logger,
	)

	dispatcher := dispatch.NewDispatcher(
		broker,
		settingsRepo,
		providers.NewGoogleCalendarClient(logger),
		providers.NewGmailAPIClient(logger),
		providers.NewMicrosoftGraphClient(logger),
		providers.NewSlackAPIClient(logger),
		metrics,
		logger,
	)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "development-secret-change-in-production"
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: jwtSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}

	router := rest.NewRouter(
		handlers.NewIngestHandler(ingestPipeline, nodeRepo, publisher, logger),
		handlers.NewNodeHandler(dispatcher, nodeRepo, publisher, logger),
		handlers.NewSettingsHandler(settingsRepo, logger),
		handlers.NewIntegrationHandler(credRepo, stateRepo, refresher, cache, logger),
		validator,
		cfg.EnableCORS,
		logger,
	)

	return &Container{
		Config:               cfg,
		Logger:               logger,
		NodeRepository:       nodeRepo,
		CredentialRepository: credRepo,
		SettingsRepository:   settingsRepo,
		OAuthStateRepository: stateRepo,
		Cache:                cache,
		Metrics:              metrics,
		Publisher:            publisher,
		Refresher:            refresher,
		Broker:               broker,
		Pipeline:             ingestPipeline,
		Dispatcher:           dispatcher,
		Router:               router,
	}, nil
}
