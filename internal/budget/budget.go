// Package budget watches accumulated completion cost against a spend
// cap and raises alerts as thresholds are crossed. A run with no cap
// configured is never throttled.
package budget

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agentlab/agentlab/internal/ledger"
)

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelExceeded AlertLevel = "exceeded"
)

type Alert struct {
	Level      AlertLevel
	Budget     float64
	CurrentUse float64
	Percentage float64
	Timestamp  time.Time
}

type AlertHandler func(alert Alert)

type Thresholds struct {
	Warning  float64
	Critical float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:  0.8,
		Critical: 0.95,
	}
}

type Monitor struct {
	mu            sync.Mutex
	ledger        *ledger.Ledger
	budgetUSD     float64
	thresholds    Thresholds
	alertHandlers []AlertHandler
	lastAlert     AlertLevel
}

func NewMonitor(l *ledger.Ledger, budgetUSD float64, thresholds Thresholds) *Monitor {
	return &Monitor{
		ledger:        l,
		budgetUSD:     budgetUSD,
		thresholds:    thresholds,
		alertHandlers: make([]AlertHandler, 0),
	}
}

func (m *Monitor) OnAlert(handler AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertHandlers = append(m.alertHandlers, handler)
}

// Check compares current ledger cost against the cap and fires handlers
// when a new threshold is crossed. Repeats of the same level are
// suppressed until the level changes.
func (m *Monitor) Check() *Alert {
	if m.budgetUSD <= 0 {
		return nil
	}

	currentCost := m.ledger.Cost()
	percentage := currentCost / m.budgetUSD

	var level AlertLevel
	switch {
	case percentage >= 1.0:
		level = AlertLevelExceeded
	case percentage >= m.thresholds.Critical:
		level = AlertLevelCritical
	case percentage >= m.thresholds.Warning:
		level = AlertLevelWarning
	default:
		m.mu.Lock()
		m.lastAlert = ""
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	if m.lastAlert == level {
		m.mu.Unlock()
		return nil
	}
	m.lastAlert = level
	handlers := make([]AlertHandler, len(m.alertHandlers))
	copy(handlers, m.alertHandlers)
	m.mu.Unlock()

	alert := &Alert{
		Level:      level,
		Budget:     m.budgetUSD,
		CurrentUse: currentCost,
		Percentage: percentage * 100,
		Timestamp:  time.Now(),
	}

	for _, handler := range handlers {
		handler(*alert)
	}

	return alert
}

// Exceeded reports whether the ledger cost has reached the cap.
func (m *Monitor) Exceeded() bool {
	if m.budgetUSD <= 0 {
		return false
	}
	return m.ledger.Cost() >= m.budgetUSD
}

func LogAlertHandler(alert Alert) {
	slog.Warn("budget alert",
		"level", alert.Level,
		"budget", alert.Budget,
		"current_use", alert.CurrentUse,
		"percentage", alert.Percentage,
	)
}
