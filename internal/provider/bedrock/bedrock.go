// Package bedrock adapts Amazon Bedrock's Anthropic models to the
// completion client's provider contract. Authentication rides on the
// ambient AWS credential chain rather than an API key.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/agentlab/agentlab/internal/domain"
)

const defaultModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// invoker is the slice of the Bedrock runtime client the adapter uses;
// tests substitute a fake.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Provider struct {
	client  invoker
	modelID string
	// model is the canonical identifier used as the ledger key; the
	// Bedrock model ID carries a provider/version prefix the price
	// table does not know about.
	model string
}

func New(ctx context.Context, region string) (*Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithConfig(cfg), nil
}

func NewWithConfig(cfg aws.Config) *Provider {
	return &Provider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: defaultModelID,
		model:   "claude-3-5-sonnet",
	}
}

func (p *Provider) ID() string        { return "bedrock" }
func (p *Provider) ModelName() string { return p.model }

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.ProviderResult, error) {
	payload := invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		System:           req.System,
		Temperature:      req.Temperature,
		Messages: []invokeMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = 4096
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		// SDK failures (throttling, connectivity, 5xx) are all worth a
		// retry; the SDK has already unwrapped the HTTP layer.
		return nil, &domain.TransportError{Provider: p.ID(), Err: err}
	}

	var parsed invokeResponse
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return nil, &domain.ParseError{Provider: p.ID(), Err: err}
	}

	if len(parsed.Content) == 0 {
		return nil, &domain.ParseError{Provider: p.ID(), Field: "content[0].text"}
	}
	if parsed.Usage == nil || parsed.Usage.InputTokens == nil || parsed.Usage.OutputTokens == nil {
		return nil, &domain.ParseError{Provider: p.ID(), Field: "usage"}
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	in := *parsed.Usage.InputTokens
	out := *parsed.Usage.OutputTokens
	return &domain.ProviderResult{
		Text:         text,
		TotalTokens:  in + out,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Temperature      float64         `json:"temperature,omitempty"`
	Messages         []invokeMessage `json:"messages"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
	} `json:"usage"`
}
