package service

import (
	"context"
	"fmt"
	"strings"

	"gpadash/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

type SecretManagerService interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (SecretManagerService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required to read secrets")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client, projectID: cfg.GCPProjectID}, nil
}

// AccessSecret reads the latest version of name. A full resource path
// ("projects/...") is used as given.
func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: SecretVersionName(s.projectID, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

func SecretVersionName(projectID, name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name)
}

// ResolveGeminiAPIKey prefers GEMINI_API_KEY and otherwise reads
// GEMINI_API_KEY_SECRET from Secret Manager. An empty key is not an error:
// assistant calls then fail individually with ErrMissingAPIKey.
func ResolveGeminiAPIKey(ctx context.Context, cfg *config.Config, secrets SecretManagerService) (string, error) {
	if cfg.GeminiAPIKey != "" || cfg.GeminiAPIKeySecret == "" {
		return cfg.GeminiAPIKey, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("GEMINI_API_KEY_SECRET set but no Secret Manager client")
	}
	key, err := secrets.AccessSecret(ctx, cfg.GeminiAPIKeySecret)
	if err != nil {
		return "", fmt.Errorf("resolving Gemini API key: %w", err)
	}
	return strings.TrimSpace(key), nil
}
