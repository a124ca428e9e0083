// Package main runs a paper-trading session against a live WebSocket tick
// feed or a recorded CSV series replayed as ticks. Orders submitted up
// front fill as prices arrive; the final portfolio summary prints on
// shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/feed"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/paper"
)

type orderSpec struct {
	side       domain.Side
	typ        domain.OrderType
	symbol     string
	qty        float64
	limitPrice *float64
	stopPrice  *float64
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	wsEndpoint := flag.String("ws-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "WebSocket tick feed endpoint")
	replayCSV := flag.String("replay-csv", "", "Replay a CSV bar file as ticks instead of connecting to a feed")
	symbols := flag.String("symbols", "", "Comma-separated symbols to subscribe to")
	initialCapital := flag.Float64("initial-capital", 100_000, "Starting cash")
	commission := flag.Float64("commission", 0.001, "Commission rate per trade leg")
	orders := flag.String("orders", "", "Orders to submit up front: \"side:type:symbol:qty[:price[:stop]]\", comma-separated")

	flag.Parse()

	logger := log.New(os.Stderr, "[papertrade] ", log.LstdFlags)

	if *wsEndpoint == "" && *replayCSV == "" {
		logger.Fatal("--ws-endpoint or --replay-csv is required")
	}

	specs, err := parseOrders(*orders)
	if err != nil {
		logger.Fatalf("Invalid --orders: %v", err)
	}

	trader := paper.New(paper.Options{
		InitialCapital: *initialCapital,
		Commission:     *commission,
	})

	for _, spec := range specs {
		order, err := trader.Submit(spec.symbol, spec.side, spec.typ, spec.qty, spec.limitPrice, spec.stopPrice)
		if err != nil {
			logger.Fatalf("Submit order: %v", err)
		}
		observability.RecordOrderSubmitted(string(spec.typ), string(spec.side))
		logger.Printf("Submitted %s %s %s qty=%g id=%s status=%s",
			order.Side, order.Type, order.Symbol, order.Quantity, order.OrderID, order.Status)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticks, closeFeed, err := openFeed(ctx, *wsEndpoint, *replayCSV, splitSymbols(*symbols), logger)
	if err != nil {
		logger.Fatalf("Open feed: %v", err)
	}
	defer closeFeed()

	processed := 0
loop:
	for {
		select {
		case <-ctx.Done():
			logger.Println("Shutdown signal received")
			break loop
		case tick, ok := <-ticks:
			if !ok {
				logger.Println("Feed closed")
				break loop
			}
			trader.OnTick(map[string]float64{tick.Symbol: tick.Price})
			observability.RecordTick()
			processed++
		}
	}
	logger.Printf("Processed %d ticks", processed)

	summary := trader.Summary()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Fatalf("Encode summary: %v", err)
	}
}

// openFeed returns a tick channel from the replay file or the WebSocket
// feed, plus a close function.
func openFeed(ctx context.Context, wsEndpoint, replayCSV string, symbols []string, logger *log.Logger) (<-chan domain.Tick, func(), error) {
	if replayCSV != "" {
		symbol := "REPLAY"
		if len(symbols) > 0 {
			symbol = symbols[0]
		}
		bars, err := marketdata.LoadCSV(replayCSV, symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("load replay file: %w", err)
		}
		logger.Printf("Replaying %d bars from %s", len(bars), replayCSV)
		return feed.NewReplay(bars).Stream(ctx), func() {}, nil
	}

	if len(symbols) == 0 {
		return nil, nil, fmt.Errorf("--symbols is required with --ws-endpoint")
	}
	client, err := feed.NewClient(ctx, wsEndpoint, symbols, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect feed: %w", err)
	}
	logger.Printf("Connected to %s, subscribed to %v", wsEndpoint, symbols)
	return client.Ticks(), func() { _ = client.Close() }, nil
}

// parseOrders parses "side:type:symbol:qty[:price[:stop]]" entries.
// Limit orders take price as the limit, stop orders take it as the stop
// trigger, and stop-limit orders take both.
func parseOrders(s string) ([]orderSpec, error) {
	if s == "" {
		return nil, nil
	}

	var specs []orderSpec
	for _, raw := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		if len(parts) < 4 {
			return nil, fmt.Errorf("malformed order %q (want side:type:symbol:qty[:price[:stop]])", raw)
		}

		spec := orderSpec{
			side:   domain.Side(parts[0]),
			typ:    domain.OrderType(parts[1]),
			symbol: parts[2],
		}
		qty, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity in %q: %w", raw, err)
		}
		spec.qty = qty

		prices := make([]float64, 0, 2)
		for _, p := range parts[4:] {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("parse price in %q: %w", raw, err)
			}
			prices = append(prices, v)
		}

		switch spec.typ {
		case domain.OrderTypeMarket:
			if len(prices) != 0 {
				return nil, fmt.Errorf("market order %q takes no price", raw)
			}
		case domain.OrderTypeLimit:
			if len(prices) != 1 {
				return nil, fmt.Errorf("limit order %q needs exactly one price", raw)
			}
			spec.limitPrice = &prices[0]
		case domain.OrderTypeStop:
			if len(prices) != 1 {
				return nil, fmt.Errorf("stop order %q needs exactly one price", raw)
			}
			spec.stopPrice = &prices[0]
		case domain.OrderTypeStopLimit:
			if len(prices) != 2 {
				return nil, fmt.Errorf("stop-limit order %q needs stop and limit prices", raw)
			}
			spec.stopPrice = &prices[0]
			spec.limitPrice = &prices[1]
		default:
			return nil, fmt.Errorf("unknown order type %q in %q", parts[1], raw)
		}

		specs = append(specs, spec)
	}
	return specs, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		sym = strings.TrimSpace(sym)
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
