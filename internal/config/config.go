// Package config provides configuration management for the cloudops assistant.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultEndpointURL is the Lambda function URL (AWS_IAM auth) the assistant talks to
	DefaultEndpointURL = "https://h5xtjthqbbwegusk5eqyvpsa7u0mlwlm.lambda-url.us-east-1.on.aws/"
	DefaultRegion      = "us-east-1"
	DefaultListenAddr  = ":8080"
	DefaultMaxSessions = 100

	// SigningService is the SigV4 service name for Lambda function URLs
	SigningService = "lambda"
)

// Config holds the configuration for the assistant
type Config struct {
	// Credentials used to sign requests to the remote function
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string // Optional
	Region          string

	EndpointURL string

	// Logging
	LogLevel string
	LogJSON  bool

	// Telemetry
	TelemetryEnabled bool
	OTLPEndpoint     string

	// Web surface
	ListenAddr  string
	MaxSessions int
}

// ConfigError reports every required setting that is missing or invalid
type ConfigError struct {
	Problems *multierror.Error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.TrimSpace(e.Problems.Error()))
}

func (e *ConfigError) Unwrap() error {
	return e.Problems.ErrorOrNil()
}

// Load loads configuration from environment variables, applying defaults for anything optional
func Load() Config {
	config := Config{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Region:          DefaultRegion,
		EndpointURL:     DefaultEndpointURL,
		LogLevel:        "info",
		ListenAddr:      DefaultListenAddr,
		MaxSessions:     DefaultMaxSessions,
	}

	loadOptionalFromEnv(&config.Region, "AWS_DEFAULT_REGION")
	loadOptionalFromEnv(&config.EndpointURL, "CLOUDOPS_ENDPOINT_URL")
	loadOptionalFromEnv(&config.LogLevel, "LOG_LEVEL")
	loadOptionalFromEnv(&config.OTLPEndpoint, "OTLP_ENDPOINT")
	loadOptionalFromEnv(&config.ListenAddr, "LISTEN_ADDR")
	config.LogJSON = strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")

	if v := os.Getenv("TELEMETRY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.TelemetryEnabled = b
		}
	}
	// A malformed MAX_SESSIONS is reported by Validate rather than silently dropped
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		config.MaxSessions = n
	}

	return config
}

func loadOptionalFromEnv(dest *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dest = v
	}
}

// Validate checks that the settings needed to sign and send a request are present. It reports all problems at
// once so a user can fix their environment in one pass.
func (c Config) Validate() error {
	var problems *multierror.Error
	if c.AccessKeyID == "" {
		problems = multierror.Append(problems, fmt.Errorf("missing required environment variable: AWS_ACCESS_KEY_ID"))
	}
	if c.SecretAccessKey == "" {
		problems = multierror.Append(problems, fmt.Errorf("missing required environment variable: AWS_SECRET_ACCESS_KEY"))
	}
	if c.Region == "" {
		problems = multierror.Append(problems, fmt.Errorf("missing region: AWS_DEFAULT_REGION"))
	}
	if u, err := url.Parse(c.EndpointURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = multierror.Append(problems, fmt.Errorf("invalid endpoint URL '%s'", c.EndpointURL))
	}
	if c.MaxSessions <= 0 {
		problems = multierror.Append(problems, fmt.Errorf("MAX_SESSIONS must be a positive integer"))
	}
	if c.TelemetryEnabled && c.OTLPEndpoint == "" {
		problems = multierror.Append(problems, fmt.Errorf("TELEMETRY_ENABLED is set but OTLP_ENDPOINT is empty"))
	}

	if problems.ErrorOrNil() != nil {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// AWSConfig builds the SDK configuration used for signing. Credentials are the static ones from the environment, so
// no shared config files or instance metadata are consulted.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	if err := c.Validate(); err != nil {
		return aws.Config{}, err
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}
