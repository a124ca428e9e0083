package marketdata

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCSV_WithHeader(t *testing.T) {
	data := `timestamp_ms,open,high,low,close,volume
1704067200000,100,102,99,101,500000
1704153600000,101,103,100,102.5,600000
`
	bars, err := ReadCSV(strings.NewReader(data), "AAPL")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Symbol != "AAPL" || bars[0].TimestampMs != 1704067200000 || bars[0].Close != 101 {
		t.Errorf("first bar = %+v", bars[0])
	}
	if bars[1].Close != 102.5 || bars[1].Volume != 600000 {
		t.Errorf("second bar = %+v", bars[1])
	}
}

func TestReadCSV_WithoutHeader(t *testing.T) {
	data := "1704067200000,100,102,99,101,500000\n"
	bars, err := ReadCSV(strings.NewReader(data), "AAPL")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("bars = %d, want 1", len(bars))
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad price", "1704067200000,abc,102,99,101,500000\n"},
		{"missing column", "1704067200000,100,102,99,101\n"},
		{"out of order", "1704153600000,100,102,99,101,1\n1704067200000,100,102,99,101,1\n"},
		{"duplicate timestamp", "1704067200000,100,102,99,101,1\n1704067200000,100,102,99,101,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), "AAPL")
			if !errors.Is(err, ErrMalformedCSV) {
				t.Errorf("expected ErrMalformedCSV, got %v", err)
			}
		})
	}
}

func TestSynthetic_Deterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig("TEST")
	cfg.Bars = 50

	a := Synthetic(cfg)
	b := Synthetic(cfg)

	if len(a) != 50 {
		t.Fatalf("bars = %d, want 50", len(a))
	}
	for i := range a {
		if a[i].Close != b[i].Close || a[i].TimestampMs != b[i].TimestampMs {
			t.Fatalf("bar %d differs across identical configs", i)
		}
	}
}

func TestSynthetic_Invariants(t *testing.T) {
	cfg := DefaultSyntheticConfig("TEST")
	bars := Synthetic(cfg)

	for i, bar := range bars {
		if bar.Close <= 0 {
			t.Errorf("bar %d close = %f, want > 0", i, bar.Close)
		}
		if bar.High < bar.Low {
			t.Errorf("bar %d high %f < low %f", i, bar.High, bar.Low)
		}
		if i > 0 && bar.TimestampMs != bars[i-1].TimestampMs+cfg.IntervalMs {
			t.Errorf("bar %d timestamp gap", i)
		}
	}
}
