package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/agentlab/internal/domain"
)

type fakeInvoker struct {
	gotInput *bedrockruntime.InvokeModelInput
	body     []byte
	err      error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.gotInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func newTestProvider(f *fakeInvoker) *Provider {
	return &Provider{client: f, modelID: defaultModelID, model: "claude-3-5-sonnet"}
}

func TestComplete_Success(t *testing.T) {
	f := &fakeInvoker{body: []byte(`{
		"content": [{"type": "text", "text": "ok"}],
		"usage": {"input_tokens": 20, "output_tokens": 30}
	}`)}
	p := newTestProvider(f)

	result, err := p.Complete(context.Background(), domain.CompletionRequest{
		System:    "sys",
		Prompt:    "prompt",
		MaxTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, 50, result.TotalTokens)

	require.NotNil(t, f.gotInput)
	assert.Equal(t, defaultModelID, *f.gotInput.ModelId)

	var sent invokeRequest
	require.NoError(t, json.Unmarshal(f.gotInput.Body, &sent))
	assert.Equal(t, "sys", sent.System)
	assert.Equal(t, 512, sent.MaxTokens)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
}

func TestComplete_SDKErrorIsTransient(t *testing.T) {
	f := &fakeInvoker{err: errors.New("ThrottlingException")}
	p := newTestProvider(f)

	_, err := p.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, domain.IsTransient(err))
}

func TestComplete_MissingFieldsAreStructural(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no content", `{"content": [], "usage": {"input_tokens": 1, "output_tokens": 1}}`},
		{"no usage", `{"content": [{"type": "text", "text": "ok"}]}`},
		{"malformed", `{"content": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(&fakeInvoker{body: []byte(tt.body)})
			_, err := p.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
			assert.True(t, domain.IsStructural(err))
		})
	}
}

func TestModelName_UsesCanonicalID(t *testing.T) {
	p := newTestProvider(&fakeInvoker{})
	assert.Equal(t, "claude-3-5-sonnet", p.ModelName())
	assert.Equal(t, "bedrock", p.ID())
}
