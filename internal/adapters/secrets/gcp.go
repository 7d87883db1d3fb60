package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"go.uber.org/zap"
)

// GCPStore reads JSON secret payloads from Google Cloud Secret Manager.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or workload identity.
type GCPStore struct {
	client    *secretmanager.Client
	projectID string
	logger    *zap.Logger
}

// NewGCPStore creates a Secret Manager client for projectID
func NewGCPStore(ctx context.Context, projectID string, logger *zap.Logger) (*GCPStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager store initialized", zap.String("project_id", projectID))
	return &GCPStore{client: client, projectID: projectID, logger: logger}, nil
}

// GetSecret reads the latest version of the secret named path. Path
// separators become dashes, so garanti/terminal reads secret garanti-terminal.
func (s *GCPStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	name := gcpSecretName(s.projectID, path)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		s.logger.Error("Failed to access GCP secret", zap.String("secret_name", name), zap.Error(err))
		return nil, fmt.Errorf("access GCP secret %s: %w", path, err)
	}
	return parseFields(result.GetPayload().GetData())
}

// gcpSecretName builds the version resource name. Secret ids allow only
// letters, digits, underscores and dashes.
func gcpSecretName(projectID, path string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '-'
	}, strings.Trim(path, "/"))
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, id)
}

// Close releases the client connection
func (s *GCPStore) Close() error {
	return s.client.Close()
}
