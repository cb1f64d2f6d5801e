// Package secrets resolves provider API keys. The environment is checked
// first; an AWS Secrets Manager source can be layered behind it for CI
// runs where keys are not exported into the process environment.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/agentlab/agentlab/internal/domain"
)

// KeyNames are the recognized credential names, in priority order. The
// first source holding a non-empty value for any of them wins.
var KeyNames = []string{"DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY"}

type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// Resolver walks its sources in order. Resolution is lazy: it happens on
// first use, never at construction.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// APIKey returns the first non-empty value found for names, trying each
// source in order. Returns domain.ErrMissingCredentials when nothing
// matches.
func (r *Resolver) APIKey(ctx context.Context, names ...string) (string, error) {
	if len(names) == 0 {
		names = KeyNames
	}
	for _, src := range r.sources {
		for _, name := range names {
			value, err := src.Get(ctx, name)
			if err != nil {
				continue
			}
			if value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("%w (checked %v)", domain.ErrMissingCredentials, names)
}

// EnvSource reads credentials from the process environment.
type EnvSource struct{}

func (EnvSource) Get(ctx context.Context, name string) (string, error) {
	return os.Getenv(name), nil
}

// AWSSource reads a JSON secret from AWS Secrets Manager and serves
// credential names from its fields. Values are cached for the TTL so a
// multi-agent run does not hammer the API.
type AWSSource struct {
	client   *secretsmanager.Client
	secretID string

	mu        sync.Mutex
	fields    map[string]string
	expiresAt time.Time
	ttl       time.Duration
}

func NewAWSSource(ctx context.Context, region, secretID string) (*AWSSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSSource{
		client:   secretsmanager.NewFromConfig(cfg),
		secretID: secretID,
		ttl:      5 * time.Minute,
	}, nil
}

func (s *AWSSource) Get(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fields == nil || time.Now().After(s.expiresAt) {
		out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(s.secretID),
		})
		if err != nil {
			return "", fmt.Errorf("get secret %s: %w", s.secretID, err)
		}

		fields := make(map[string]string)
		if out.SecretString != nil {
			if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
				return "", fmt.Errorf("decode secret %s: %w", s.secretID, err)
			}
		}
		s.fields = fields
		s.expiresAt = time.Now().Add(s.ttl)
	}

	return s.fields[name], nil
}

// StaticSource serves fixed values; used in tests.
type StaticSource map[string]string

func (s StaticSource) Get(ctx context.Context, name string) (string, error) {
	return s[name], nil
}
