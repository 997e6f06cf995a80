package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// AWSProvider resolves secrets from AWS Secrets Manager, trimmed from the
// teacher's AWSSecretsProvider down to a single GetSecretValue call — no
// response cache, no batch fan-out, no per-provider metrics, since
// vibe-core resolves one APIKeyRef at a time.
type AWSProvider struct {
	client *secretsmanager.Client
	prefix string
}

// NewAWSProvider builds an AWS Secrets Manager-backed provider for
// region, namespacing lookups under prefix.
func NewAWSProvider(ctx context.Context, region, prefix string) (*AWSProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, newError("aws-sm", "", err)
	}
	return &AWSProvider{client: secretsmanager.NewFromConfig(cfg), prefix: prefix}, nil
}

func (p *AWSProvider) GetSecret(ctx context.Context, key string) (string, error) {
	name := key
	if p.prefix != "" {
		name = p.prefix + key
	}
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", newError("aws-sm", key, ErrNotFound)
		}
		return "", newError("aws-sm", key, err)
	}
	if out.SecretString == nil {
		return "", newError("aws-sm", key, ErrNotFound)
	}
	return *out.SecretString, nil
}
