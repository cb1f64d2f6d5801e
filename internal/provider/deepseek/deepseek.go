// Package deepseek adapts the DeepSeek chat completions API to the
// completion client's provider contract.
package deepseek

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
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"
)

// KeyFunc supplies the API key. Resolved on each request so credentials
// are validated lazily, never at construction.
type KeyFunc func(ctx context.Context) (string, error)

// StaticKey wraps a fixed key as a KeyFunc.
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
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the adapter at a different endpoint; used by tests.
func (p *Provider) WithBaseURL(url string) *Provider {
	p.baseURL = strings.TrimSuffix(url, "/")
	return p
}

func (p *Provider) ID() string        { return "deepseek" }
func (p *Provider) ModelName() string { return p.model }

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.ProviderResult, error) {
	key, err := p.keyFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	payload := chatRequest{
		Model: p.model,
		Messages: []domain.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", bearerHeader(key))

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

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &domain.ParseError{Provider: p.ID(), Err: err}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == nil {
		return nil, &domain.ParseError{Provider: p.ID(), Field: "choices[0].message.content"}
	}
	if parsed.Usage == nil || parsed.Usage.TotalTokens == nil {
		return nil, &domain.ParseError{Provider: p.ID(), Field: "usage.total_tokens"}
	}

	return &domain.ProviderResult{
		Text:        *parsed.Choices[0].Message.Content,
		TotalTokens: *parsed.Usage.TotalTokens,
	}, nil
}

// bearerHeader strips any scheme already baked into the stored key so
// the header is never double-prefixed.
func bearerHeader(key string) string {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), "Bearer "))
	return "Bearer " + clean
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens *int `json:"total_tokens"`
	} `json:"usage"`
}
