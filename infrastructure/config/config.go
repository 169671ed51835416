package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion         string
	NodesTable        string
	IntegrationsTable string
	EventBusName      string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Extraction model
	BedrockModelID string

	// OAuth client configuration, per provider
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string
	MicrosoftScopes       string
	SlackClientID         string
	SlackClientSecret     string

	// Outbound call timeouts, seconds
	ProviderTimeout int
	RefreshTimeout  int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableEvents  bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:     getEnv("SERVER_ADDRESS", ":8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		NodesTable:        getEnv("TABLE_NAME", "braindump-nodes"),
		IntegrationsTable: getEnv("INTEGRATIONS_TABLE_NAME", "braindump-integrations"),
		EventBusName:      getEnv("EVENT_BUS_NAME", "braindump-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),

		GoogleClientID:        getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftTenant:       getEnv("MICROSOFT_TENANT", "common"),
		MicrosoftScopes:       getEnv("MICROSOFT_SCOPES", "offline_access Mail.Send Calendars.ReadWrite"),
		SlackClientID:         getEnv("SLACK_CLIENT_ID", ""),
		SlackClientSecret:     getEnv("SLACK_CLIENT_SECRET", ""),

		ProviderTimeout: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 15),
		RefreshTimeout:  getEnvInt("REFRESH_TIMEOUT_SECONDS", 10),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "braindump"),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableEvents:  getEnvBool("ENABLE_EVENTS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.NodesTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.IntegrationsTable == "" {
			return fmt.Errorf("INTEGRATIONS_TABLE_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
