package domain

import "time"

// CompletionRequest describes a single prompt exchange with a remote model.
// One value per call; never shared between calls.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Message is one entry in a provider chat payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the validated result of a successful exchange.
// TokensUsed is the provider-reported total for the exchange.
type CompletionResponse struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
}

// ProviderResult is what an adapter hands back after parsing a provider
// response. Providers that report input/output separately also fill the
// split fields; TotalTokens is always populated.
type ProviderResult struct {
	Text         string
	TotalTokens  int
	InputTokens  int
	OutputTokens int
}

// Paper holds arXiv metadata for one search result.
type Paper struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Published  string   `json:"published"`
	Categories []string `json:"categories"`
	PaperID    string   `json:"paper_id"`
	PDFURL     string   `json:"pdf_url"`
}

// ExchangeRecord is one archived completion exchange.
type ExchangeRecord struct {
	RequestID    string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Cached       bool
	LatencyMs    int64
	Timestamp    time.Time
}
