// Package anthropic adapts the Anthropic Messages API to the completion
// client's provider contract.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentlab/agentlab/internal/domain"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-5-sonnet"
)

type KeyFunc func(ctx context.Context) (string, error)

func StaticKey(key string) KeyFunc {
	return func(ctx context.Context) (string, error) { return key, nil }
}

type Provider struct {
	keyFn   KeyFunc
	baseURL string
	model   string
	client  *http.Client
}

func New(keyFn KeyFunc) *Provider {
	return &Provider{
		keyFn:   keyFn,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *Provider) WithBaseURL(url string) *Provider {
	p.baseURL = strings.TrimSuffix(url, "/")
	return p
}

// WithModel overrides the canonical model identifier used as the ledger key.
func (p *Provider) WithModel(model string) *Provider {
	p.model = model
	return p
}

func (p *Provider) ID() string        { return "anthropic" }
func (p *Provider) ModelName() string { return p.model }

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.ProviderResult, error) {
	key, err := p.keyFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	payload := messagesRequest{
		Model:       p.model,
		System:      req.System,
		Messages:    []domain.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = 4096
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", strings.TrimSpace(key))
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Provider: p.ID(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &domain.StatusError{
			Provider:   p.ID(),
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
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

type messagesRequest struct {
	Model       string           `json:"model"`
	System      string           `json:"system,omitempty"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   *struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
