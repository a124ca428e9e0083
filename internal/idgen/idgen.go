// Package idgen computes deterministic, content-derived identifiers.
// IDs are SHA256 over |-joined fields, base58-encoded for compactness.
package idgen

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"strategy-lab/internal/domain"
)

// OrderID computes a deterministic order identifier.
// Formula: SHA256(symbol|side|seq|created_at_ms).
func OrderID(symbol string, side domain.Side, seq uint64, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", symbol, side, seq, createdAtMs)
	return encode(data)
}

// ExecutionID computes a deterministic execution identifier.
// Formula: SHA256(order_id|timestamp_ms|quantity|price).
func ExecutionID(orderID string, timestampMs int64, quantity, price float64) string {
	data := fmt.Sprintf("%s|%d|%g|%g", orderID, timestampMs, quantity, price)
	return encode(data)
}

// RunID computes a deterministic backtest run identifier.
// Formula: SHA256(strategy|symbol|sorted params|created_at_ms).
func RunID(strategy, symbol string, params domain.Params, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s", strategy, symbol)
	for _, name := range params.Names() {
		data += fmt.Sprintf("|%s=%g", name, params[name])
	}
	data += fmt.Sprintf("|%d", createdAtMs)
	return encode(data)
}

func encode(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
