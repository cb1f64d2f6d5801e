package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/agentlab/internal/ledger"
)

func testLedger() *ledger.Ledger {
	return ledger.New(ledger.PriceTable{
		"test-model": {InputPerToken: 0.01, OutputPerToken: 0.01},
	})
}

func TestCheckNoBudget(t *testing.T) {
	l := testLedger()
	l.Add("test-model", 1000, 1000)

	m := NewMonitor(l, 0, DefaultThresholds())
	assert.Nil(t, m.Check())
	assert.False(t, m.Exceeded())
}

func TestCheckBelowWarning(t *testing.T) {
	l := testLedger()
	l.Add("test-model", 10, 0) // $0.10 of $1.00

	m := NewMonitor(l, 1.0, DefaultThresholds())
	assert.Nil(t, m.Check())
	assert.False(t, m.Exceeded())
}

func TestCheckThresholdLevels(t *testing.T) {
	tests := []struct {
		name      string
		inTokens  int
		wantLevel AlertLevel
	}{
		{"warning at 80 percent", 80, AlertLevelWarning},
		{"critical at 95 percent", 95, AlertLevelCritical},
		{"exceeded at 100 percent", 100, AlertLevelExceeded},
		{"exceeded past budget", 140, AlertLevelExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLedger()
			l.Add("test-model", tt.inTokens, 0) // budget $1.00, $0.01 per token

			m := NewMonitor(l, 1.0, DefaultThresholds())
			alert := m.Check()
			require.NotNil(t, alert)
			assert.Equal(t, tt.wantLevel, alert.Level)
			assert.Equal(t, 1.0, alert.Budget)
			assert.InDelta(t, float64(tt.inTokens)*0.01, alert.CurrentUse, 1e-9)
		})
	}
}

func TestCheckDeduplicatesSameLevel(t *testing.T) {
	l := testLedger()
	l.Add("test-model", 85, 0)

	m := NewMonitor(l, 1.0, DefaultThresholds())
	require.NotNil(t, m.Check())
	assert.Nil(t, m.Check())

	// crossing into a new level fires again
	l.Add("test-model", 15, 0)
	alert := m.Check()
	require.NotNil(t, alert)
	assert.Equal(t, AlertLevelExceeded, alert.Level)
}

func TestCheckHandlersInvoked(t *testing.T) {
	l := testLedger()
	l.Add("test-model", 100, 0)

	m := NewMonitor(l, 1.0, DefaultThresholds())
	var got []Alert
	m.OnAlert(func(a Alert) { got = append(got, a) })

	require.NotNil(t, m.Check())
	require.Len(t, got, 1)
	assert.Equal(t, AlertLevelExceeded, got[0].Level)
}

func TestExceeded(t *testing.T) {
	l := testLedger()
	m := NewMonitor(l, 1.0, DefaultThresholds())

	assert.False(t, m.Exceeded())
	l.Add("test-model", 100, 0)
	assert.True(t, m.Exceeded())
}
