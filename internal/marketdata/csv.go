// Package marketdata loads price series from CSV files and generates
// deterministic synthetic series for demos and tests.
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"strategy-lab/internal/domain"
)

// ErrMalformedCSV is returned when a CSV row cannot be parsed into a bar.
var ErrMalformedCSV = errors.New("malformed csv")

// csv column order: timestamp_ms,open,high,low,close,volume
const csvColumns = 6

// LoadCSV reads an OHLCV series from path. The first row is treated as a
// header if its first field is not numeric. Rows must already be in
// timestamp order; the loader verifies ordering and fails fast on
// violations.
func LoadCSV(path, symbol string) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, symbol)
}

// ReadCSV parses an OHLCV series from r.
func ReadCSV(r io.Reader, symbol string) ([]*domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = csvColumns

	var bars []*domain.Bar
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line+1, err)
		}
		line++

		// Skip the header row
		if line == 1 {
			if _, err := strconv.ParseInt(record[0], 10, 64); err != nil {
				continue
			}
		}

		bar, err := parseBar(record, symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}
		if len(bars) > 0 && bar.TimestampMs <= bars[len(bars)-1].TimestampMs {
			return nil, fmt.Errorf("%w: line %d: timestamps not strictly increasing", ErrMalformedCSV, line)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseBar(record []string, symbol string) (*domain.Bar, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("timestamp_ms: %v", err)
	}

	fields := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := range fields {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", names[i], err)
		}
		fields[i] = v
	}

	return &domain.Bar{
		Symbol:      symbol,
		TimestampMs: ts,
		Open:        fields[0],
		High:        fields[1],
		Low:         fields[2],
		Close:       fields[3],
		Volume:      fields[4],
	}, nil
}
