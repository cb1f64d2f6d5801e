package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Cost(t *testing.T) {
	prices := PriceTable{
		"deepseek-chat": {InputPerToken: 1e-6, OutputPerToken: 5e-6},
	}

	l := New(prices)
	l.Add("deepseek-chat", 1000, 500)

	assert.InDelta(t, 1000*1e-6+500*5e-6, l.Cost(), 1e-12)
}

func TestLedger_UnknownModelCostsZero(t *testing.T) {
	l := New(PriceTable{})
	l.Add("some-future-model", 10_000, 10_000)
	assert.Zero(t, l.Cost())
}

func TestLedger_AccumulatesAcrossExchanges(t *testing.T) {
	l := New(nil)
	l.Add("deepseek-chat", 20, 30)
	l.Add("deepseek-chat", 5, 7)
	l.Add("claude-3-5-sonnet", 100, 200)

	snap := l.Snapshot()
	assert.Equal(t, Totals{TokensIn: 25, TokensOut: 37}, snap["deepseek-chat"])
	assert.Equal(t, Totals{TokensIn: 100, TokensOut: 200}, snap["claude-3-5-sonnet"])
}

func TestLedger_TotalsSumAcrossModels(t *testing.T) {
	l := New(nil)
	assert.Equal(t, Totals{}, l.Totals())

	l.Add("deepseek-chat", 20, 30)
	l.Add("claude-3-5-sonnet", 100, 200)
	l.Add("deepseek-chat", 5, 7)

	assert.Equal(t, Totals{TokensIn: 125, TokensOut: 237}, l.Totals())
}

func TestLedger_ConcurrentAdds(t *testing.T) {
	prices := PriceTable{
		"a": {InputPerToken: 2e-6, OutputPerToken: 3e-6},
		"b": {InputPerToken: 1e-6, OutputPerToken: 4e-6},
	}
	l := New(prices)

	const goroutines = 32
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			model := "a"
			if g%2 == 1 {
				model = "b"
			}
			for i := 0; i < perGoroutine; i++ {
				l.Add(model, 3, 5)
			}
		}(g)
	}
	wg.Wait()

	snap := l.Snapshot()
	half := goroutines / 2 * perGoroutine
	require.Equal(t, Totals{TokensIn: 3 * half, TokensOut: 5 * half}, snap["a"])
	require.Equal(t, Totals{TokensIn: 3 * half, TokensOut: 5 * half}, snap["b"])

	// Cost equals the sum computed from final totals, independent of
	// interleaving.
	want := float64(3*half)*2e-6 + float64(5*half)*3e-6 +
		float64(3*half)*1e-6 + float64(5*half)*4e-6
	assert.InDelta(t, want, l.Cost(), 1e-9)
}

func TestPriceTable_Cost(t *testing.T) {
	prices := DefaultPrices()
	assert.InDelta(t, 20*1e-6+30*5e-6, prices.Cost("deepseek-chat", 20, 30), 1e-12)
	assert.Zero(t, prices.Cost("unknown", 1000, 1000))
}
