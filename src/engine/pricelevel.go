package engine

import "container/list"

// PriceLevel holds every resting order at one exact price, in arrival
// order, plus a cached sum of remaining quantities.
//
// The FIFO queue is a container/list.List rather than a slice: cancelling
// an order at an arbitrary position in the queue must be O(1) and must not
// invalidate any other order's handle, which rules out a slice (middle
// removal is linear) the same way it rules out std::vector in the reference
// C++ source (price_level.hpp). It also rules out a ring-buffer deque —
// gammazero/deque's Remove from a non-end position shifts the buffer and is
// O(n) — leaving an intrusive doubly linked list as the only O(1) choice;
// container/list is exactly that, and Go's *list.Element plays the role the
// reference implementation's std::list<Order*>::iterator plays.
type PriceLevel struct {
	price         Price
	totalQuantity Quantity
	orders        *list.List // Value: *Order
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price Price) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: list.New(),
	}
}

// Price returns the level's price.
func (pl *PriceLevel) Price() Price {
	return pl.price
}

// TotalQuantity returns the cached sum of remaining quantities.
func (pl *PriceLevel) TotalQuantity() Quantity {
	return pl.totalQuantity
}

// OrderCount returns the number of resident orders.
func (pl *PriceLevel) OrderCount() int {
	return pl.orders.Len()
}

// Empty reports whether the level holds no orders.
func (pl *PriceLevel) Empty() bool {
	return pl.orders.Len() == 0
}

// Front returns the earliest-arrived order, or nil if the level is empty.
func (pl *PriceLevel) Front() *Order {
	front := pl.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

// Append registers order at the tail of the queue and returns the handle
// that identifies its slot for later O(1) removal via Remove. The handle
// stays valid under arbitrary other appends and removals in this level
// until it is itself consumed by Remove.
func (pl *PriceLevel) Append(order *Order) *list.Element {
	pl.totalQuantity += order.Remaining()
	return pl.orders.PushBack(order)
}

// Remove detaches the order at elem's slot and decreases the cached total by
// its current remaining quantity. elem is consumed; using it again is a
// programmer error.
func (pl *PriceLevel) Remove(elem *list.Element) {
	order := elem.Value.(*Order)
	pl.totalQuantity -= order.Remaining()
	pl.orders.Remove(elem)
}

// ReduceCachedQuantity subtracts delta from the cached total. The matching
// loop calls this each time an order still resident in this level is
// partially filled, so the cache stays consistent while the order remains
// in the queue (Remove is only called once the order leaves the level
// entirely).
func (pl *PriceLevel) ReduceCachedQuantity(delta Quantity) {
	pl.totalQuantity -= delta
}
