// Package agents implements the research workflow roles. Every agent
// drives the same shared completion client so token usage and cost
// accumulate in one ledger.
package agents

import (
	"context"

	"github.com/agentlab/agentlab/internal/domain"
)

// Config carries the knobs common to every agent.
type Config struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Completer is the slice of the completion client the agents need.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (*domain.CompletionResponse, error)
}

// PaperSearcher finds paper metadata for a free-text query.
type PaperSearcher interface {
	FindPapersByQuery(ctx context.Context, query string, limit int) ([]domain.Paper, error)
}

// BudgetProbe reports whether the spend cap has been reached. Agents
// consult it between expensive steps rather than per token.
type BudgetProbe interface {
	Exceeded() bool
}

type Agent interface {
	Process(ctx context.Context, input string) (string, error)
	Config() Config
}
