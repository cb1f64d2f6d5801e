package llm

import (
	"fmt"
	"time"

	"github.com/agentlab/agentlab/internal/backoff"
	"github.com/agentlab/agentlab/internal/cache"
	"github.com/agentlab/agentlab/internal/domain"
	"github.com/agentlab/agentlab/internal/ledger"
)

// Factory constructs clients that all share one ledger (and, when
// configured, one cache and one archive). Construction performs no
// network I/O; provider credentials are resolved on first request.
type Factory struct {
	policy      backoff.Policy
	ledger      *ledger.Ledger
	cache       cache.Cache
	cacheTTL    time.Duration
	archive     Recorder
	temperature float64
	maxTokens   int

	providers map[string]Provider
}

type FactoryOption func(*Factory)

func WithCache(c cache.Cache, ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

func WithArchive(r Recorder) FactoryOption {
	return func(f *Factory) { f.archive = r }
}

func WithSampling(temperature float64, maxTokens int) FactoryOption {
	return func(f *Factory) {
		f.temperature = temperature
		f.maxTokens = maxTokens
	}
}

func NewFactory(policy backoff.Policy, l *ledger.Ledger, opts ...FactoryOption) *Factory {
	if l == nil {
		l = ledger.New(nil)
	}
	f := &Factory{
		policy:      policy,
		ledger:      l,
		temperature: 0.7,
		maxTokens:   4096,
		providers:   make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register makes a provider available under its ID.
func (f *Factory) Register(p Provider) {
	f.providers[p.ID()] = p
}

// Client returns a completion client for the named provider kind. Every
// client from one factory shares the factory's ledger.
func (f *Factory) Client(kind string) (*Client, error) {
	p, ok := f.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, kind)
	}
	return f.newClient(p), nil
}

// NewClient wraps an already-constructed provider; used by tests and by
// callers that build providers themselves.
func (f *Factory) NewClient(p Provider) *Client {
	return f.newClient(p)
}

func (f *Factory) newClient(p Provider) *Client {
	return &Client{
		provider:    p,
		policy:      f.policy,
		ledger:      f.ledger,
		cache:       f.cache,
		cacheTTL:    f.cacheTTL,
		archive:     f.archive,
		temperature: f.temperature,
		maxTokens:   f.maxTokens,
		sleep:       sleepContext,
	}
}

// Ledger returns the shared ledger.
func (f *Factory) Ledger() *ledger.Ledger { return f.ledger }

// Providers lists the registered provider kinds.
func (f *Factory) Providers() []string {
	kinds := make([]string, 0, len(f.providers))
	for kind := range f.providers {
		kinds = append(kinds, kind)
	}
	return kinds
}
