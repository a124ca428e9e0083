package paper

import (
	"errors"
	"math"
	"testing"
	"time"

	"strategy-lab/internal/domain"
)

func newTestTrader(capital, commission float64) *Trader {
	// Deterministic clock advancing 1s per call
	ts := int64(1704067200000)
	return New(Options{
		InitialCapital: capital,
		Commission:     commission,
		Now: func() time.Time {
			ts += 1000
			return time.UnixMilli(ts)
		},
	})
}

func ptr(v float64) *float64 { return &v }

func TestTrader_MarketBuyFillsOnTick(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	order, err := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("new order status = %s, want pending", order.Status)
	}

	tr.OnTick(map[string]float64{"AAPL": 150})

	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("order status = %s, want filled", got.Status)
	}
	if got.FilledPrice == nil || *got.FilledPrice != 150 {
		t.Errorf("FilledPrice = %v, want 150", got.FilledPrice)
	}
	if got.FilledQuantity != 100 {
		t.Errorf("FilledQuantity = %f, want 100", got.FilledQuantity)
	}

	// cash_after + cost == cash_before, cost includes commission
	wantCost := 100*150.0 + 100*150.0*0.001
	if math.Abs(tr.Cash()-(100000-wantCost)) > 1e-9 {
		t.Errorf("Cash = %f, want %f", tr.Cash(), 100000-wantCost)
	}

	pos, held := tr.Position("AAPL")
	if !held || pos.Quantity != 100 || pos.AvgPrice != 150 {
		t.Errorf("position = %+v held=%v, want qty=100 avg=150", pos, held)
	}
}

func TestTrader_BuyRejectedInsufficientFunds(t *testing.T) {
	tr := newTestTrader(1000, 0.001)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 150})

	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusRejected {
		t.Fatalf("order status = %s, want rejected", got.Status)
	}
	if tr.Cash() != 1000 {
		t.Errorf("Cash = %f, rejection must not mutate state", tr.Cash())
	}
	if len(tr.Executions()) != 0 {
		t.Errorf("rejected order produced %d executions", len(tr.Executions()))
	}
}

func TestTrader_SellRejectedWithoutPosition(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	order, _ := tr.Submit("AAPL", domain.SideSell, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 150})

	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusRejected {
		t.Fatalf("order status = %s, want rejected", got.Status)
	}
}

func TestTrader_SellRejectedInsufficientShares(t *testing.T) {
	tr := newTestTrader(100000, 0)

	buy, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})
	if got, _ := tr.Order(buy.OrderID); got.Status != domain.OrderStatusFilled {
		t.Fatalf("setup buy not filled: %s", got.Status)
	}

	sell, _ := tr.Submit("AAPL", domain.SideSell, domain.OrderTypeMarket, 11, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})

	got, _ := tr.Order(sell.OrderID)
	if got.Status != domain.OrderStatusRejected {
		t.Fatalf("oversized sell status = %s, want rejected", got.Status)
	}
	pos, held := tr.Position("AAPL")
	if !held || pos.Quantity != 10 {
		t.Errorf("position mutated by rejected sell: %+v held=%v", pos, held)
	}
}

func TestTrader_SellCreditsProceedsNetOfCommission(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})
	cashAfterBuy := tr.Cash()

	tr.Submit("AAPL", domain.SideSell, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 110})

	proceeds := 100 * 110.0 * (1 - 0.001)
	if math.Abs(tr.Cash()-(cashAfterBuy+proceeds)) > 1e-9 {
		t.Errorf("Cash = %f, want %f", tr.Cash(), cashAfterBuy+proceeds)
	}
	if _, held := tr.Position("AAPL"); held {
		t.Error("position should be removed after full sell")
	}
}

func TestTrader_LimitBuy(t *testing.T) {
	tr := newTestTrader(100000, 0)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeLimit, 10, ptr(100), nil)

	// Tick above the limit: never fills
	tr.OnTick(map[string]float64{"AAPL": 101})
	if got, _ := tr.Order(order.OrderID); got.Status != domain.OrderStatusPending {
		t.Fatalf("limit buy filled at 101 with limit 100: %s", got.Status)
	}

	// Tick at or below the limit: fills at the limit price, not the tick
	tr.OnTick(map[string]float64{"AAPL": 99})
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("limit buy status = %s, want filled", got.Status)
	}
	if *got.FilledPrice != 100 {
		t.Errorf("FilledPrice = %f, want limit price 100", *got.FilledPrice)
	}
}

func TestTrader_LimitSell(t *testing.T) {
	tr := newTestTrader(100000, 0)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})

	order, _ := tr.Submit("AAPL", domain.SideSell, domain.OrderTypeLimit, 10, ptr(120), nil)

	tr.OnTick(map[string]float64{"AAPL": 119})
	if got, _ := tr.Order(order.OrderID); got.Status != domain.OrderStatusPending {
		t.Fatalf("limit sell filled below limit: %s", got.Status)
	}

	tr.OnTick(map[string]float64{"AAPL": 121})
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("limit sell status = %s, want filled", got.Status)
	}
	if *got.FilledPrice != 120 {
		t.Errorf("FilledPrice = %f, want limit price 120", *got.FilledPrice)
	}
}

func TestTrader_StopBuyTriggersAsMarket(t *testing.T) {
	tr := newTestTrader(100000, 0)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeStop, 10, nil, ptr(105))

	tr.OnTick(map[string]float64{"AAPL": 104})
	if got, _ := tr.Order(order.OrderID); got.Status != domain.OrderStatusPending {
		t.Fatalf("stop buy triggered below stop price: %s", got.Status)
	}

	// Trigger crosses at tick >= stop; fills at the tick price
	tr.OnTick(map[string]float64{"AAPL": 106})
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("stop buy status = %s, want filled", got.Status)
	}
	if *got.FilledPrice != 106 {
		t.Errorf("FilledPrice = %f, want tick price 106", *got.FilledPrice)
	}
	if !got.Triggered {
		t.Error("Triggered flag not latched")
	}
}

func TestTrader_StopSellTriggersAsMarket(t *testing.T) {
	tr := newTestTrader(100000, 0)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})

	order, _ := tr.Submit("AAPL", domain.SideSell, domain.OrderTypeStop, 10, nil, ptr(95))

	tr.OnTick(map[string]float64{"AAPL": 96})
	if got, _ := tr.Order(order.OrderID); got.Status != domain.OrderStatusPending {
		t.Fatalf("stop sell triggered above stop price: %s", got.Status)
	}

	tr.OnTick(map[string]float64{"AAPL": 94})
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("stop sell status = %s, want filled", got.Status)
	}
	if *got.FilledPrice != 94 {
		t.Errorf("FilledPrice = %f, want tick price 94", *got.FilledPrice)
	}
}

func TestTrader_StopLimitBecomesLimitAfterTrigger(t *testing.T) {
	tr := newTestTrader(100000, 0)

	// Buy once price breaks above 105, but pay no more than 104.
	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeStopLimit, 10, ptr(104), ptr(105))

	// Trigger crossed, limit not satisfied: stays pending with trigger latched
	tr.OnTick(map[string]float64{"AAPL": 106})
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusPending {
		t.Fatalf("stop-limit filled above limit: %s", got.Status)
	}
	if !got.Triggered {
		t.Fatal("trigger not latched after crossing stop price")
	}

	// Price falls back under the limit: fills at the limit price
	tr.OnTick(map[string]float64{"AAPL": 103})
	got, _ = tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("stop-limit status = %s, want filled", got.Status)
	}
	if *got.FilledPrice != 104 {
		t.Errorf("FilledPrice = %f, want limit price 104", *got.FilledPrice)
	}
}

func TestTrader_ExecuteOnTerminalOrder(t *testing.T) {
	tr := newTestTrader(100000, 0)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})

	err := tr.Execute(order, 100)
	if !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("Execute on filled order: expected ErrInvalidOrderState, got %v", err)
	}
	if len(tr.Executions()) != 1 {
		t.Errorf("double execution recorded: %d fills", len(tr.Executions()))
	}
}

func TestTrader_Cancel(t *testing.T) {
	tr := newTestTrader(100000, 0)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeLimit, 10, ptr(90), nil)

	if err := tr.Cancel(order.OrderID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	got, _ := tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Cancelled orders never fill
	tr.OnTick(map[string]float64{"AAPL": 80})
	got, _ = tr.Order(order.OrderID)
	if got.Status != domain.OrderStatusCancelled {
		t.Errorf("cancelled order changed state: %s", got.Status)
	}

	if err := tr.Cancel(order.OrderID); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("Cancel on terminal order: expected ErrInvalidOrderState, got %v", err)
	}
	if err := tr.Cancel("nope"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Cancel unknown: expected ErrOrderNotFound, got %v", err)
	}
}

func TestTrader_SubmitValidation(t *testing.T) {
	tr := newTestTrader(100000, 0)

	tests := []struct {
		name  string
		typ   domain.OrderType
		qty   float64
		limit *float64
		stop  *float64
	}{
		{"zero quantity", domain.OrderTypeMarket, 0, nil, nil},
		{"negative quantity", domain.OrderTypeMarket, -5, nil, nil},
		{"limit without price", domain.OrderTypeLimit, 10, nil, nil},
		{"stop without price", domain.OrderTypeStop, 10, nil, nil},
		{"stop-limit missing stop", domain.OrderTypeStopLimit, 10, ptr(100), nil},
		{"unknown type", domain.OrderType("iceberg"), 10, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Submit("AAPL", domain.SideBuy, tt.typ, tt.qty, tt.limit, tt.stop)
			if !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}

func TestTrader_SubmitRejectsUnknownSide(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	for _, side := range []domain.Side{"hold", "short", ""} {
		if _, err := tr.Submit("AAPL", side, domain.OrderTypeMarket, 100, nil, nil); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("Submit side %q: expected ErrInvalidOrder, got %v", side, err)
		}
	}
	if got := len(tr.Orders()); got != 0 {
		t.Errorf("orders tracked = %d, want 0", got)
	}

	tr.OnTick(map[string]float64{"AAPL": 100})
	if tr.Cash() != 100000 {
		t.Errorf("Cash = %f, want 100000", tr.Cash())
	}
	if got := len(tr.Executions()); got != 0 {
		t.Errorf("executions = %d, want 0", got)
	}
}

func TestTrader_ExecuteRejectsUnknownSide(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	// Bypasses Submit validation: every fill must move cash, so an order
	// with an unsettleable side must never be stamped filled.
	order := &domain.Order{
		OrderID:  "bogus",
		Symbol:   "AAPL",
		Side:     domain.Side("hold"),
		Type:     domain.OrderTypeMarket,
		Quantity: 100,
		Status:   domain.OrderStatusPending,
	}
	if err := tr.Execute(order, 100); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want pending", order.Status)
	}
	if order.FilledPrice != nil || order.FilledQuantity != 0 {
		t.Errorf("order recorded a fill: qty=%f price=%v", order.FilledQuantity, order.FilledPrice)
	}
	if tr.Cash() != 100000 {
		t.Errorf("Cash = %f, want 100000", tr.Cash())
	}
	if got := len(tr.Executions()); got != 0 {
		t.Errorf("executions = %d, want 0", got)
	}
}

func TestTrader_WeightedAverageAcrossFills(t *testing.T) {
	tr := newTestTrader(100000, 0)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})
	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 50, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 130})

	pos, _ := tr.Position("AAPL")
	want := (100.0*100 + 50.0*130) / 150.0
	if math.Abs(pos.AvgPrice-want) > 1e-9 {
		t.Errorf("AvgPrice = %f, want %f", pos.AvgPrice, want)
	}
}

func TestTrader_TickMarksPositions(t *testing.T) {
	tr := newTestTrader(100000, 0)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 10, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})
	tr.OnTick(map[string]float64{"AAPL": 120, "MSFT": 300})

	pos, _ := tr.Position("AAPL")
	if pos.MarkPrice != 120 {
		t.Errorf("MarkPrice = %f, want 120", pos.MarkPrice)
	}
	if pos.UnrealizedPnL() != 200 {
		t.Errorf("UnrealizedPnL = %f, want 200", pos.UnrealizedPnL())
	}
}

func TestTrader_Summary(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})
	tr.OnTick(map[string]float64{"AAPL": 110})

	s := tr.Summary()
	if s.NumPositions != 1 || s.NumOrders != 1 || s.NumTrades != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", s.NumPositions, s.NumOrders, s.NumTrades)
	}

	wantCash := 100000 - 100*100.0*1.001
	if math.Abs(s.Cash-wantCash) > 1e-9 {
		t.Errorf("Cash = %f, want %f", s.Cash, wantCash)
	}
	if math.Abs(s.PositionsValue-100*110.0) > 1e-9 {
		t.Errorf("PositionsValue = %f, want 11000", s.PositionsValue)
	}
	if math.Abs(s.PortfolioValue-(wantCash+11000)) > 1e-9 {
		t.Errorf("PortfolioValue = %f", s.PortfolioValue)
	}
	if len(s.Positions) != 1 || s.Positions[0].Symbol != "AAPL" {
		t.Fatalf("positions detail = %+v", s.Positions)
	}
	if math.Abs(s.Positions[0].UnrealizedPnL-1000) > 1e-9 {
		t.Errorf("UnrealizedPnL = %f, want 1000", s.Positions[0].UnrealizedPnL)
	}
}

func TestTrader_ExecutionLog(t *testing.T) {
	tr := newTestTrader(100000, 0.001)

	order, _ := tr.Submit("AAPL", domain.SideBuy, domain.OrderTypeMarket, 100, nil, nil)
	tr.OnTick(map[string]float64{"AAPL": 100})

	execs := tr.Executions()
	if len(execs) != 1 {
		t.Fatalf("executions = %d, want 1", len(execs))
	}
	e := execs[0]
	if e.OrderID != order.OrderID || e.Symbol != "AAPL" || e.Side != domain.SideBuy {
		t.Errorf("execution = %+v", e)
	}
	if e.Quantity != 100 || e.Price != 100 {
		t.Errorf("execution qty/price = %f/%f", e.Quantity, e.Price)
	}
	if math.Abs(e.Commission-10) > 1e-9 {
		t.Errorf("Commission = %f, want 10", e.Commission)
	}
	if e.ExecutionID == "" {
		t.Error("ExecutionID not set")
	}
}
