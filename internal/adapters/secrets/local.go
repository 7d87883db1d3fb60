package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalStore reads JSON secrets from the filesystem.
// WARNING: development only. Use AWS Secrets Manager, GCP Secret Manager or Vault in production.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStore resolves secret paths relative to basePath
func NewLocalStore(basePath string, logger *zap.Logger) *LocalStore {
	return &LocalStore{basePath: basePath, logger: logger}
}

// GetSecret reads <basePath>/<path>.json, falling back to <basePath>/<path>
func (s *LocalStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	clean := filepath.Clean("/" + path)
	candidates := []string{
		filepath.Join(s.basePath, clean+".json"),
		filepath.Join(s.basePath, clean),
	}

	for _, file := range candidates {
		data, err := os.ReadFile(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read secret %s: %w", path, err)
		}
		s.logger.Debug("Read secret from filesystem", zap.String("path", path))
		return parseFields(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
}
