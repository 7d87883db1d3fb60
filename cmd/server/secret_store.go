package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/booking-payment-service/internal/adapters/secrets"
	"github.com/kevin07696/booking-payment-service/internal/config"
	"github.com/kevin07696/booking-payment-service/pkg/shutdown"
)

// initSecretStore builds the backend selected by SECRET_MANAGER, wrapped in a TTL cache:
//   - local: JSON files under LOCAL_SECRETS_FILE (development only)
//   - aws:   AWS Secrets Manager in AWS_REGION (AWS_ENDPOINT_URL for LocalStack)
//   - vault: HashiCorp Vault KV v2 at VAULT_ADDR, mount VAULT_MOUNT
//   - gcp:   Google Cloud Secret Manager in GCP_PROJECT_ID
func initSecretStore(ctx context.Context, cfg config.SecretsConfig, mgr *shutdown.Manager, logger *zap.Logger) (secrets.Store, error) {
	var backend secrets.Store

	switch cfg.Manager {
	case "local":
		logger.Warn("Using LOCAL secret store - NOT for production use!",
			zap.String("base_path", cfg.LocalFile),
		)
		backend = secrets.NewLocalStore(cfg.LocalFile, logger)

	case "aws":
		store, err := secrets.NewAWSStore(ctx, secrets.AWSConfig{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.AWSEndpoint,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("aws secrets manager: %w", err)
		}
		backend = store

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddr, cfg.VaultToken)
		vaultCfg.MountPath = cfg.VaultMount
		store, err := secrets.NewVaultStore(ctx, vaultCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		backend = store

	case "gcp":
		store, err := secrets.NewGCPStore(ctx, cfg.GCPProjectID, logger)
		if err != nil {
			return nil, fmt.Errorf("gcp secret manager: %w", err)
		}
		mgr.RegisterCloser("gcp-secret-manager", store)
		backend = store

	default:
		return nil, fmt.Errorf("unknown secret manager %q", cfg.Manager)
	}

	logger.Info("Secret store initialized",
		zap.String("secret_manager", cfg.Manager),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return secrets.NewCachedStore(backend, cfg.CacheTTL), nil
}
