// Package backtest evaluates a strategy signal sequence against a
// historical price series under cash and share constraints.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"strategy-lab/internal/accounting"
	"strategy-lab/internal/domain"
)

// ErrShortSignals is returned when the signal sequence is shorter than the
// price series. The engine fails fast before touching any state.
var ErrShortSignals = errors.New("signal sequence shorter than price series")

// SignalFunc produces one signal per bar: > 0 means want-long, < 0 means
// want-flat, 0 means hold. Implementations must be pure and safe to invoke
// concurrently from independent evaluations.
type SignalFunc func(bars []*domain.Bar, params domain.Params) ([]float64, error)

// entryFraction is the share of available cash committed per entry. The
// remainder absorbs commission and rounding.
const entryFraction = 0.95

// Engine replays a single-symbol, single-position simulation. One instance
// per run; Run may be called repeatedly, each call starts from a fresh
// ledger.
type Engine struct {
	initialCapital float64
	commission     float64
}

// NewEngine creates a backtest engine with the given starting capital and
// commission rate (fraction of notional, both legs).
func NewEngine(initialCapital, commission float64) *Engine {
	return &Engine{
		initialCapital: initialCapital,
		commission:     commission,
	}
}

// Run generates signals from the strategy and replays them over the series.
func (e *Engine) Run(bars []*domain.Bar, strategy SignalFunc, params domain.Params) (*Result, error) {
	signals, err := strategy(bars, params)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	return e.RunSignals(bars, signals)
}

// RunSignals replays a precomputed signal sequence over the series.
// Per bar, in input order: record an equity point, then enter on signal > 0
// when flat, exit on signal < 0 when long. Any position still open after
// the final bar is force-closed at the last close, so every run ends fully
// liquidated into cash.
func (e *Engine) RunSignals(bars []*domain.Bar, signals []float64) (*Result, error) {
	if len(signals) < len(bars) {
		return nil, fmt.Errorf("%w: %d signals for %d bars", ErrShortSignals, len(signals), len(bars))
	}

	ledger := accounting.NewLedger(e.initialCapital, e.commission)
	equityCurve := make([]*domain.EquityPoint, 0, len(bars))
	var trades []*domain.ClosedTrade
	var open *domain.ClosedTrade

	for i, bar := range bars {
		signal := signals[i]
		close := bar.Close

		equity := ledger.Cash()
		if open != nil {
			equity += (close - open.EntryPrice) * open.Quantity
		}
		equityCurve = append(equityCurve, &domain.EquityPoint{
			TimestampMs: bar.TimestampMs,
			Equity:      equity,
			Cash:        ledger.Cash(),
		})

		if signal > 0 && open == nil {
			qty := math.Floor(ledger.Cash() * entryFraction / close)
			if qty < 1 {
				continue
			}
			cost := qty*close + ledger.Commission(qty*close)
			// Guards against rounding pushing cost past available cash
			if cost > ledger.Cash() {
				continue
			}
			if err := ledger.Debit(cost); err != nil {
				continue
			}
			open = &domain.ClosedTrade{
				Symbol:      bar.Symbol,
				EntryTimeMs: bar.TimestampMs,
				EntryPrice:  close,
				Quantity:    qty,
				Side:        domain.TradeSideLong,
			}
		} else if signal < 0 && open != nil {
			e.closePosition(ledger, open, bar.TimestampMs, close)
			trades = append(trades, open)
			open = nil
		}
	}

	if open != nil {
		last := bars[len(bars)-1]
		e.closePosition(ledger, open, last.TimestampMs, last.Close)
		trades = append(trades, open)
	}

	return newResult(e.initialCapital, ledger.Cash(), trades, equityCurve), nil
}

func (e *Engine) closePosition(ledger *accounting.Ledger, trade *domain.ClosedTrade, timestampMs int64, price float64) {
	proceeds := trade.Quantity*price - ledger.Commission(trade.Quantity*price)
	ledger.Credit(proceeds)
	exitTime := timestampMs
	exitPrice := price
	trade.ExitTimeMs = &exitTime
	trade.ExitPrice = &exitPrice
}
