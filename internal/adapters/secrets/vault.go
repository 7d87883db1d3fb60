package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultConfig configures the HashiCorp Vault KV backend
type VaultConfig struct {
	Address string
	// AuthMethod is "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string
	Namespace  string
	MountPath  string
	// KVVersion is "v1" or "v2"
	KVVersion string
}

// DefaultVaultConfig returns token auth against a KV v2 mount named "secret"
func DefaultVaultConfig(address, token string) VaultConfig {
	return VaultConfig{
		Address:    address,
		AuthMethod: "token",
		Token:      token,
		MountPath:  "secret",
		KVVersion:  "v2",
	}
}

// VaultStore reads secrets from a Vault KV mount
type VaultStore struct {
	client *vault.Client
	config VaultConfig
	logger *zap.Logger
}

// NewVaultStore creates and authenticates a Vault client
func NewVaultStore(ctx context.Context, cfg VaultConfig, logger *zap.Logger) (*VaultStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("authenticate with Vault: %w", err)
	}

	logger.Info("Vault store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
	)
	return &VaultStore{client: client, config: cfg, logger: logger}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg VaultConfig) error {
	switch cfg.AuthMethod {
	case "", "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil
	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil
	}
	return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
}

// GetSecret reads path from the configured mount
func (s *VaultStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	fullPath := kvPath(s.config, path)
	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		s.logger.Error("Failed to read secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("read secret from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	data := secret.Data
	if s.config.KVVersion != "v1" {
		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid KV v2 secret format at %s", path)
		}
		data = inner
	}
	return stringFields(data), nil
}

func kvPath(cfg VaultConfig, path string) string {
	mount := strings.Trim(cfg.MountPath, "/")
	path = strings.TrimPrefix(path, "/")
	if cfg.KVVersion == "v1" {
		return mount + "/" + path
	}
	return mount + "/data/" + path
}
