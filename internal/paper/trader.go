// Package paper simulates live order execution without real capital.
// A Trader is a sequential state machine: one instance must be driven by a
// single logical thread of control.
package paper

import (
	"fmt"
	"time"

	"strategy-lab/internal/accounting"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/idgen"
	"strategy-lab/internal/observability"
)

// Trader resolves pending orders against incoming price ticks and settles
// fills against a cash ledger and position book.
type Trader struct {
	ledger *accounting.Ledger
	book   *accounting.PositionBook

	// orders in submission order; never deleted, retained for audit
	orders []*domain.Order
	byID   map[string]*domain.Order

	// executions is the append-only fill log, one entry per fill
	executions []*domain.Execution

	seq uint64
	now func() time.Time
}

// Options for creating a Trader.
type Options struct {
	InitialCapital float64
	Commission     float64 // fraction of notional, charged on both legs

	// Now overrides the clock for deterministic tests. Defaults to time.Now.
	Now func() time.Time
}

// New creates a paper trader with the given starting capital and
// commission rate.
func New(opts Options) *Trader {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Trader{
		ledger: accounting.NewLedger(opts.InitialCapital, opts.Commission),
		book:   accounting.NewPositionBook(),
		byID:   make(map[string]*domain.Order),
		now:    now,
	}
}

// Submit creates a new pending order and returns it. Submission never
// touches the ledger; affordability is decided at execution time.
func (t *Trader) Submit(symbol string, side domain.Side, typ domain.OrderType, qty float64, limitPrice, stopPrice *float64) (*domain.Order, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	switch side {
	case domain.SideBuy, domain.SideSell:
	default:
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	}
	switch typ {
	case domain.OrderTypeMarket:
	case domain.OrderTypeLimit:
		if limitPrice == nil {
			return nil, fmt.Errorf("%w: limit order requires a limit price", ErrInvalidOrder)
		}
	case domain.OrderTypeStop:
		if stopPrice == nil {
			return nil, fmt.Errorf("%w: stop order requires a stop price", ErrInvalidOrder)
		}
	case domain.OrderTypeStopLimit:
		if limitPrice == nil || stopPrice == nil {
			return nil, fmt.Errorf("%w: stop-limit order requires limit and stop prices", ErrInvalidOrder)
		}
	default:
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, typ)
	}

	t.seq++
	createdAt := t.now().UnixMilli()
	order := &domain.Order{
		OrderID:     idgen.OrderID(symbol, side, t.seq, createdAt),
		Seq:         t.seq,
		Symbol:      symbol,
		Side:        side,
		Type:        typ,
		Quantity:    qty,
		LimitPrice:  limitPrice,
		StopPrice:   stopPrice,
		Status:      domain.OrderStatusPending,
		CreatedAtMs: createdAt,
	}

	t.orders = append(t.orders, order)
	t.byID[order.OrderID] = order
	return order, nil
}

// Execute settles an order at the given price. This is the single
// settlement primitive: insufficient funds on buy or insufficient shares on
// sell reject the order (status rejected, no state change) without an
// error; callers inspect the order status. Calling Execute on a
// non-pending order returns ErrInvalidOrderState without touching state.
func (t *Trader) Execute(order *domain.Order, price float64) error {
	if order.IsTerminal() {
		return ErrInvalidOrderState
	}

	notional := order.Quantity * price
	commission := t.ledger.Commission(notional)

	switch order.Side {
	case domain.SideBuy:
		totalCost := notional + commission
		if totalCost > t.ledger.Cash() {
			order.Status = domain.OrderStatusRejected
			return nil
		}
		if err := t.ledger.Debit(totalCost); err != nil {
			order.Status = domain.OrderStatusRejected
			return nil
		}
		t.book.OpenOrIncrease(order.Symbol, order.Quantity, price)

	case domain.SideSell:
		pos, held := t.book.Get(order.Symbol)
		if !held || order.Quantity > pos.Quantity {
			order.Status = domain.OrderStatusRejected
			return nil
		}
		if err := t.book.Reduce(order.Symbol, order.Quantity); err != nil {
			order.Status = domain.OrderStatusRejected
			return nil
		}
		t.ledger.Credit(notional - commission)

	default:
		// No settlement without a cash movement.
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, order.Side)
	}

	filledAt := t.now().UnixMilli()
	order.Status = domain.OrderStatusFilled
	order.FilledQuantity = order.Quantity
	order.FilledPrice = &price
	order.FilledAtMs = &filledAt

	t.executions = append(t.executions, &domain.Execution{
		ExecutionID: idgen.ExecutionID(order.OrderID, filledAt, order.Quantity, price),
		TimestampMs: filledAt,
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Price:       price,
		Commission:  commission,
	})
	observability.RecordOrderFilled(string(order.Type))

	return nil
}

// OnTick updates mark prices for held positions and resolves pending
// orders whose symbol appears in the price map.
func (t *Trader) OnTick(prices map[string]float64) {
	for symbol, price := range prices {
		t.book.MarkPrice(symbol, price)
	}

	for _, order := range t.orders {
		if order.IsTerminal() {
			continue
		}
		price, ok := prices[order.Symbol]
		if !ok {
			continue
		}

		switch order.Type {
		case domain.OrderTypeMarket:
			t.Execute(order, price)

		case domain.OrderTypeLimit:
			t.executeIfLimitMet(order, price)

		case domain.OrderTypeStop:
			// A triggered stop executes as a market order at the tick price.
			if stopTriggered(order, price) {
				order.Triggered = true
				t.Execute(order, price)
			}

		case domain.OrderTypeStopLimit:
			// A triggered stop-limit behaves as a limit order thereafter.
			if !order.Triggered && stopTriggered(order, price) {
				order.Triggered = true
			}
			if order.Triggered {
				t.executeIfLimitMet(order, price)
			}
		}
	}
}

// executeIfLimitMet fills a limit order at the limit price (not the tick
// price; the model assumes a favorable fill at the stated limit) once the
// tick crosses it.
func (t *Trader) executeIfLimitMet(order *domain.Order, tickPrice float64) {
	limit := *order.LimitPrice
	if order.Side == domain.SideBuy && tickPrice <= limit {
		t.Execute(order, limit)
	} else if order.Side == domain.SideSell && tickPrice >= limit {
		t.Execute(order, limit)
	}
}

// stopTriggered reports whether the tick crossed the stop threshold.
// Trigger state is monotone: callers latch it on the order.
func stopTriggered(order *domain.Order, tickPrice float64) bool {
	if order.Triggered {
		return true
	}
	stop := *order.StopPrice
	if order.Side == domain.SideBuy {
		return tickPrice >= stop
	}
	return tickPrice <= stop
}

// Cancel cancels a pending order. Returns ErrOrderNotFound for unknown
// IDs and ErrInvalidOrderState for orders already in a terminal state.
func (t *Trader) Cancel(orderID string) error {
	order, exists := t.byID[orderID]
	if !exists {
		return ErrOrderNotFound
	}
	if order.IsTerminal() {
		return ErrInvalidOrderState
	}
	order.Status = domain.OrderStatusCancelled
	return nil
}

// Cash returns the current cash balance.
func (t *Trader) Cash() float64 {
	return t.ledger.Cash()
}

// Order returns a copy of the order with the given ID.
func (t *Trader) Order(orderID string) (domain.Order, bool) {
	order, exists := t.byID[orderID]
	if !exists {
		return domain.Order{}, false
	}
	return *order, true
}

// Orders returns copies of all orders in submission order.
func (t *Trader) Orders() []domain.Order {
	out := make([]domain.Order, len(t.orders))
	for i, o := range t.orders {
		out[i] = *o
	}
	return out
}

// Executions returns copies of the fill log in fill order.
func (t *Trader) Executions() []domain.Execution {
	out := make([]domain.Execution, len(t.executions))
	for i, e := range t.executions {
		out[i] = *e
	}
	return out
}

// Position returns a copy of the held position for symbol, if any.
func (t *Trader) Position(symbol string) (domain.Position, bool) {
	return t.book.Get(symbol)
}

// Positions returns copies of all held positions, ordered by symbol.
func (t *Trader) Positions() []domain.Position {
	return t.book.All()
}

// PortfolioValue returns cash plus the market value of all positions.
func (t *Trader) PortfolioValue() float64 {
	return t.ledger.Cash() + t.book.MarketValue()
}
