// Package ledger tracks cumulative token usage per model and derives the
// monetary cost of a session. One Ledger is shared by reference across
// every completion client in the process.
package ledger

import "sync"

// Pricing is the per-token price pair for one model.
type Pricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// PriceTable maps model identifiers to prices. Read-only after
// construction; models absent from the table cost zero.
type PriceTable map[string]Pricing

// DefaultPrices carries the published per-million-token rates for the
// model families the adapters target.
func DefaultPrices() PriceTable {
	perM := func(in, out float64) Pricing {
		return Pricing{InputPerToken: in / 1_000_000, OutputPerToken: out / 1_000_000}
	}
	return PriceTable{
		"gpt-4o":            perM(2.50, 10.00),
		"gpt-4o-mini":       perM(0.150, 0.6),
		"o1":                perM(15.00, 60.00),
		"o1-preview":        perM(15.00, 60.00),
		"o1-mini":           perM(3.00, 12.00),
		"claude-3-5-sonnet": perM(3.00, 12.00),
		"deepseek-chat":     perM(1.00, 5.00),
	}
}

// Cost prices a single exchange. Unknown models cost zero.
func (t PriceTable) Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := t[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)*p.InputPerToken + float64(outputTokens)*p.OutputPerToken
}

// Ledger accumulates input and output token counts per model. All methods
// are safe for concurrent use; the input/output pair for one exchange is
// applied as a single critical section and is never observable
// half-applied.
type Ledger struct {
	mu        sync.Mutex
	tokensIn  map[string]int
	tokensOut map[string]int
	prices    PriceTable
}

func New(prices PriceTable) *Ledger {
	if prices == nil {
		prices = DefaultPrices()
	}
	return &Ledger{
		tokensIn:  make(map[string]int),
		tokensOut: make(map[string]int),
		prices:    prices,
	}
}

// Add records both deltas for model atomically.
func (l *Ledger) Add(model string, inputTokens, outputTokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensIn[model] += inputTokens
	l.tokensOut[model] += outputTokens
}

// Cost returns the session total derived from the price table.
func (l *Ledger) Cost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total float64
	for model, n := range l.tokensIn {
		if p, ok := l.prices[model]; ok {
			total += float64(n) * p.InputPerToken
		}
	}
	for model, n := range l.tokensOut {
		if p, ok := l.prices[model]; ok {
			total += float64(n) * p.OutputPerToken
		}
	}
	return total
}

// Totals is a point-in-time copy of one model's counters.
type Totals struct {
	TokensIn  int
	TokensOut int
}

// Snapshot returns copied per-model totals taken under the lock, so the
// pair for each model is consistent.
func (l *Ledger) Snapshot() map[string]Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Totals, len(l.tokensIn))
	for model, n := range l.tokensIn {
		out[model] = Totals{TokensIn: n, TokensOut: l.tokensOut[model]}
	}
	for model, n := range l.tokensOut {
		if _, ok := out[model]; !ok {
			out[model] = Totals{TokensOut: n}
		}
	}
	return out
}

// Totals sums the counters across all models, taken under the lock.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	var t Totals
	for _, n := range l.tokensIn {
		t.TokensIn += n
	}
	for _, n := range l.tokensOut {
		t.TokensOut += n
	}
	return t
}

// Prices exposes the read-only table so callers can price individual
// exchanges consistently with the session total.
func (l *Ledger) Prices() PriceTable { return l.prices }
