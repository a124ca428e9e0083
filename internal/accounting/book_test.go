package accounting

import (
	"errors"
	"math"
	"testing"
)

func TestPositionBook_OpenOrIncrease(t *testing.T) {
	b := NewPositionBook()

	b.OpenOrIncrease("AAPL", 100, 150)

	p, ok := b.Get("AAPL")
	if !ok {
		t.Fatal("position not found after open")
	}
	if p.Quantity != 100 || p.AvgPrice != 150 {
		t.Errorf("position = %+v, want qty=100 avg=150", p)
	}
	if p.MarkPrice != 150 {
		t.Errorf("MarkPrice = %f, want entry price 150", p.MarkPrice)
	}
}

func TestPositionBook_WeightedAverageCost(t *testing.T) {
	b := NewPositionBook()

	// Two buys: 100@150, 50@160 -> avg = (100*150 + 50*160) / 150
	b.OpenOrIncrease("AAPL", 100, 150)
	b.OpenOrIncrease("AAPL", 50, 160)

	p, ok := b.Get("AAPL")
	if !ok {
		t.Fatal("position not found")
	}
	want := (100.0*150 + 50.0*160) / 150.0
	if math.Abs(p.AvgPrice-want) > 1e-9 {
		t.Errorf("AvgPrice = %f, want %f", p.AvgPrice, want)
	}
	if p.Quantity != 150 {
		t.Errorf("Quantity = %f, want 150", p.Quantity)
	}
}

func TestPositionBook_ReduceRemovesAtZero(t *testing.T) {
	b := NewPositionBook()
	b.OpenOrIncrease("AAPL", 100, 150)

	if err := b.Reduce("AAPL", 40); err != nil {
		t.Fatalf("Reduce(40) failed: %v", err)
	}
	p, ok := b.Get("AAPL")
	if !ok || p.Quantity != 60 {
		t.Fatalf("after partial reduce: got %+v, ok=%v", p, ok)
	}

	if err := b.Reduce("AAPL", 60); err != nil {
		t.Fatalf("Reduce(60) failed: %v", err)
	}
	if _, ok := b.Get("AAPL"); ok {
		t.Error("position should be removed once quantity reaches zero")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestPositionBook_ReduceInsufficient(t *testing.T) {
	b := NewPositionBook()

	err := b.Reduce("AAPL", 10)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Errorf("Reduce on missing symbol: expected ErrInsufficientPosition, got %v", err)
	}

	b.OpenOrIncrease("AAPL", 5, 100)
	err = b.Reduce("AAPL", 6)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Errorf("Reduce beyond held quantity: expected ErrInsufficientPosition, got %v", err)
	}

	// Failed reduce must not mutate the position
	p, _ := b.Get("AAPL")
	if p.Quantity != 5 {
		t.Errorf("Quantity after rejected reduce = %f, want 5", p.Quantity)
	}
}

func TestPositionBook_MarkPrice(t *testing.T) {
	b := NewPositionBook()
	b.OpenOrIncrease("AAPL", 100, 150)

	b.MarkPrice("AAPL", 155)
	b.MarkPrice("MSFT", 300) // no position, no-op

	p, _ := b.Get("AAPL")
	if p.MarkPrice != 155 {
		t.Errorf("MarkPrice = %f, want 155", p.MarkPrice)
	}
	if p.AvgPrice != 150 {
		t.Errorf("AvgPrice changed by mark update: %f", p.AvgPrice)
	}
	if p.UnrealizedPnL() != 500 {
		t.Errorf("UnrealizedPnL = %f, want 500", p.UnrealizedPnL())
	}
}

func TestPositionBook_AllSorted(t *testing.T) {
	b := NewPositionBook()
	b.OpenOrIncrease("MSFT", 10, 300)
	b.OpenOrIncrease("AAPL", 20, 150)

	all := b.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d positions, want 2", len(all))
	}
	if all[0].Symbol != "AAPL" || all[1].Symbol != "MSFT" {
		t.Errorf("All() not sorted by symbol: %v, %v", all[0].Symbol, all[1].Symbol)
	}
}
