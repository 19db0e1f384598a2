package engine

import "container/list"

// OrderLocation is the position token recorded per resting order: which
// side and price it rests at, and its exact slot inside that PriceLevel's
// queue. It is valid exactly while the order is resting and becomes stale
// the instant the order is removed — callers never reuse it.
type OrderLocation struct {
	Side  Side
	Price Price
	Elem  *list.Element
	Order *Order
}
