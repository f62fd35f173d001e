package score

import (
	"time"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// Input carries everything a signal may look at. Profile, Market and
// Positions are best-effort: any of them may be nil when the lookup failed
// or degraded, and every signal must tolerate that by scoring zero.
type Input struct {
	Trade     *domain.Trade
	Profile   *domain.WalletProfile
	Market    *domain.MarketInfo
	Positions []domain.Position
	Now       time.Time
}

// Signal scores one aspect of a trade. Points returns a value in
// [0, weight]; the engine truncates it to a whole number of points.
type Signal interface {
	Name() string
	Points(in Input) float64
}

// Part is one signal's contribution to a score.
type Part struct {
	Name   string
	Points int
}

// Score is the evaluated result for a single trade. Parts lists only the
// signals that contributed points, in engine order.
type Score struct {
	Total int
	Parts []Part
}

// Engine evaluates a fixed list of signals and sums their points.
type Engine struct {
	signals []Signal
}

// NewEngine builds an engine over the given signals, evaluated in order.
func NewEngine(signals ...Signal) *Engine {
	return &Engine{signals: signals}
}

// Signals returns the engine's signal names in evaluation order.
func (e *Engine) Signals() []string {
	names := make([]string, len(e.signals))
	for i, s := range e.signals {
		names[i] = s.Name()
	}
	return names
}

// Score runs every signal against the input. Each contribution is truncated
// to whole points and the total is clamped to [0, 100], so the same input
// always yields the same total.
func (e *Engine) Score(in Input) Score {
	var total int
	parts := make([]Part, 0, len(e.signals))
	for _, s := range e.signals {
		pts := int(s.Points(in))
		if pts <= 0 {
			continue
		}
		parts = append(parts, Part{Name: s.Name(), Points: pts})
		total += pts
	}
	if total > 100 {
		total = 100
	}
	return Score{Total: total, Parts: parts}
}
