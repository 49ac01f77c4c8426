// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrMissingRequiredConfig is returned when a required configuration value
// is absent or still holds a placeholder.
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// SecretsManager abstracts where sensitive configuration values come from.
type SecretsManager interface {
	GetSecret(ctx context.Context, key string) (string, error)
	GetSecrets(ctx context.Context, keys []string) (map[string]string, error)
	RefreshSecrets(ctx context.Context) error
}

// AWSSecretsManager resolves keys out of one JSON secret in AWS Secrets
// Manager, caching the whole document for a short TTL so repeated lookups
// do not hammer the API.
type AWSSecretsManager struct {
	client     *secretsmanager.Client
	secretName string
	cache      map[string]string
	cacheMu    sync.RWMutex
	lastFetch  time.Time
	ttl        time.Duration
	logger     *slog.Logger
}

// NewAWSSecretsManager creates a new AWS Secrets Manager client
func NewAWSSecretsManager(region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &AWSSecretsManager{
		client:     secretsmanager.NewFromConfig(cfg),
		secretName: secretName,
		cache:      make(map[string]string),
		ttl:        5 * time.Minute,
		logger:     logger,
	}, nil
}

// GetSecret retrieves a single secret
func (sm *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	secrets, err := sm.GetSecrets(ctx, []string{key})
	if err != nil {
		return "", err
	}

	val, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("secret key %q not found in %s", key, sm.secretName)
	}
	return val, nil
}

// GetSecrets returns the requested keys, fetching the secret document only
// when the cache has expired or misses a key.
func (sm *AWSSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if cached, ok := sm.fromCache(keys); ok {
		return cached, nil
	}

	sm.logger.Info("fetching secrets from AWS Secrets Manager",
		slog.String("secret_name", sm.secretName))

	result, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(sm.secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}

	var secretData map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secretData); err != nil {
		return nil, fmt.Errorf("parse secret JSON: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache = secretData
	sm.lastFetch = time.Now()
	sm.cacheMu.Unlock()

	return sm.pick(secretData, keys), nil
}

func (sm *AWSSecretsManager) fromCache(keys []string) (map[string]string, bool) {
	sm.cacheMu.RLock()
	defer sm.cacheMu.RUnlock()

	if time.Since(sm.lastFetch) >= sm.ttl || len(sm.cache) == 0 {
		return nil, false
	}

	cached := sm.pick(sm.cache, keys)
	return cached, len(cached) == len(keys)
}

func (sm *AWSSecretsManager) pick(data map[string]string, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := data[key]; ok {
			out[key] = val
		} else {
			sm.logger.Warn("secret key absent from document", slog.String("key", key))
		}
	}
	return out
}

// RefreshSecrets drops the cache so the next read hits AWS again
func (sm *AWSSecretsManager) RefreshSecrets(ctx context.Context) error {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]string)
	sm.lastFetch = time.Time{}
	sm.cacheMu.Unlock()

	_, err := sm.GetSecrets(ctx, []string{})
	return err
}

// EnvSecretsManager reads secrets straight from the process environment.
// Development and test environments use this one.
type EnvSecretsManager struct{}

func NewEnvSecretsManager() *EnvSecretsManager {
	return &EnvSecretsManager{}
}

func (em *EnvSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("environment variable %s not set", key)
	}
	return val, nil
}

func (em *EnvSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	secrets := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			secrets[key] = val
		}
	}
	return secrets, nil
}

func (em *EnvSecretsManager) RefreshSecrets(ctx context.Context) error {
	return nil
}

// ApplySecrets overlays sensitive values from the secrets manager onto cfg.
// Used in production, where the database password and JWT secret live in
// AWS Secrets Manager instead of the environment.
func ApplySecrets(ctx context.Context, cfg *Config, sm SecretsManager) error {
	secrets, err := sm.GetSecrets(ctx, []string{"DB_PASSWORD", "JWT_SECRET", "REDIS_PASSWORD"})
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}

	if v, ok := secrets["DB_PASSWORD"]; ok {
		cfg.Database.Password = v
	}
	if v, ok := secrets["JWT_SECRET"]; ok {
		cfg.Security.JWTSecret = v
	}
	if v, ok := secrets["REDIS_PASSWORD"]; ok {
		cfg.Redis.Password = v
		cfg.Asynq.RedisPassword = v
	}

	return nil
}
