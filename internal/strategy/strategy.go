// Package strategy provides signal-producing strategies for the backtest
// engine and a name registry for callers selecting strategies at runtime.
package strategy

import (
	"errors"
	"sort"

	"strategy-lab/internal/backtest"
)

// Registry errors
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy parameters")
)

// Strategy names.
const (
	NameMACross  = "ma_cross"
	NameMomentum = "momentum"
)

var registry = map[string]backtest.SignalFunc{
	NameMACross:  MovingAverageCross,
	NameMomentum: Momentum,
}

// Get returns the registered strategy for name.
func Get(name string) (backtest.SignalFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return fn, nil
}

// Names returns all registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
