package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"
)

// AWSConfig configures the AWS Secrets Manager backend
type AWSConfig struct {
	Region string
	// Profile selects a shared-config profile for local development
	Profile string
	// Endpoint overrides the service URL (LocalStack)
	Endpoint string
}

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads JSON secret strings from AWS Secrets Manager
type AWSStore struct {
	client secretValueGetter
	logger *zap.Logger
}

// NewAWSStore loads the default credential chain for cfg.Region
func NewAWSStore(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager store initialized", zap.String("region", cfg.Region))
	return &AWSStore{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		logger: logger,
	}, nil
}

// GetSecret fetches the current version of path
func (s *AWSStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	start := time.Now()
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		s.logger.Error("Failed to retrieve secret", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("get secret %s: %w", path, err)
	}

	s.logger.Info("Secret retrieved from AWS",
		zap.String("path", path),
		zap.String("version", aws.ToString(result.VersionId)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if result.SecretString == nil {
		return parseFields(result.SecretBinary)
	}
	return parseFields([]byte(aws.ToString(result.SecretString)))
}
