package engine

import "time"

// Order is the caller-owned description of a resting-or-aggressing order.
// The book never copies it and never takes ownership: while the order is
// resting, the book holds a non-owning reference via OrderLocation, and
// drops that reference the instant the order fills completely or is
// cancelled. The caller may discard the Order only after that point.
type Order struct {
	ID        OrderId
	Symbol    string
	Side      Side
	Type      OrderType
	Quantity  Quantity // total requested quantity
	Filled    Quantity // monotonically non-decreasing, <= Quantity
	Price     Price    // limit only; InvalidPrice for Market
	Status    OrderStatus
	CreatedAt time.Time
}

// NewOrder builds an order in its initial New status. Validation happens at
// submission time, not construction time — an invalid order can exist in
// memory right up until OrderBook.Submit rejects it.
func NewOrder(id OrderId, symbol string, side Side, orderType OrderType, price Price, quantity Quantity, now time.Time) *Order {
	return &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    StatusNew,
		CreatedAt: now,
	}
}

// Remaining is the quantity not yet filled.
func (o *Order) Remaining() Quantity {
	return o.Quantity - o.Filled
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Filled >= o.Quantity
}

// IsActive reports whether the order is still eligible to rest or match.
func (o *Order) IsActive() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// fill applies a fill of qty to the order and advances its status. It does
// not touch the book's indices — the caller (the matching loop) is
// responsible for evicting the order from its price level and by-id index
// once fill makes it IsFilled.
func (o *Order) fill(qty Quantity) {
	o.Filled += qty
	if o.IsFilled() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}
