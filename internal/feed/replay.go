package feed

import (
	"context"

	"strategy-lab/internal/domain"
)

// Replay streams stored bars as closing-price ticks in series order. It is
// the deterministic counterpart to the websocket client: a paper trading
// session driven by a Replay always observes the same tick sequence.
type Replay struct {
	bars []*domain.Bar
}

// NewReplay creates a replay source over bars.
func NewReplay(bars []*domain.Bar) *Replay {
	return &Replay{bars: bars}
}

// Stream sends one tick per bar on the returned channel, then closes it.
// The channel is unbuffered; consumption paces the replay.
func (r *Replay) Stream(ctx context.Context) <-chan domain.Tick {
	out := make(chan domain.Tick)
	go func() {
		defer close(out)
		for _, bar := range r.bars {
			tick := domain.Tick{
				Symbol:      bar.Symbol,
				Price:       bar.Close,
				TimestampMs: bar.TimestampMs,
			}
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
