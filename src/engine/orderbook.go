package engine

import (
	"time"

	"github.com/google/btree"
)

// OrderBook is a single-instrument limit order book with a price-time
// priority matching engine. It holds two price-sorted indices (one per
// side) plus a by-id lookup, and is a pure sequential in-memory
// computation: it takes no locks and performs no I/O. Concurrent use from
// multiple goroutines requires external serialization — see the service
// layer's per-book mutex in src/registry.
type OrderBook struct {
	symbol      string
	bids        *btree.BTree // descending: Min() is the highest bid
	asks        *btree.BTree // ascending: Min() is the lowest ask
	byID        map[OrderId]*OrderLocation
	nextTradeID TradeId
	clock       Clock
}

// NewOrderBook creates an empty book for symbol. clock may be nil, in which
// case time.Now is used; tests inject a deterministic clock instead.
func NewOrderBook(symbol string, clock Clock) *OrderBook {
	if clock == nil {
		clock = time.Now
	}
	return &OrderBook{
		symbol: symbol,
		bids:   btree.New(btreeDegree),
		asks:   btree.New(btreeDegree),
		byID:   make(map[OrderId]*OrderLocation),
		clock:  clock,
	}
}

// Symbol returns the instrument this book serves.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// OrderCount returns the number of currently resting orders.
func (ob *OrderBook) OrderCount() int {
	return len(ob.byID)
}

// Empty reports whether the book holds no resting orders.
func (ob *OrderBook) Empty() bool {
	return len(ob.byID) == 0
}

// BidLevels returns the number of distinct bid price levels.
func (ob *OrderBook) BidLevels() int {
	return ob.bids.Len()
}

// AskLevels returns the number of distinct ask price levels.
func (ob *OrderBook) AskLevels() int {
	return ob.asks.Len()
}

// BestBid returns the highest resting bid price, if any.
func (ob *OrderBook) BestBid() (Price, bool) {
	item := ob.bids.Min()
	if item == nil {
		return 0, false
	}
	return item.(*bidItem).level.price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (ob *OrderBook) BestAsk() (Price, bool) {
	item := ob.asks.Min()
	if item == nil {
		return 0, false
	}
	return item.(*askItem).level.price, true
}

// Spread returns best ask minus best bid, if both exist.
func (ob *OrderBook) Spread() (Price, bool) {
	bid, ok := ob.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := ob.BestAsk()
	if !ok {
		return 0, false
	}
	return ask - bid, true
}

// VolumeAtPrice returns the sum of remaining quantities resting at the
// exact price on side, or 0 if no level exists there.
func (ob *OrderBook) VolumeAtPrice(side Side, price Price) Quantity {
	level := ob.findLevel(side, price)
	if level == nil {
		return 0
	}
	return level.TotalQuantity()
}

// LevelSnapshot is one row of a depth-of-book view: a price and the
// aggregate remaining quantity resting there. It never exposes per-order
// detail.
type LevelSnapshot struct {
	Price    Price
	Quantity Quantity
}

// DepthSnapshot returns up to depth levels per side, best first.
func (ob *OrderBook) DepthSnapshot(depth int) (bids []LevelSnapshot, asks []LevelSnapshot) {
	bids = make([]LevelSnapshot, 0, depth)
	ob.bids.Ascend(func(item btree.Item) bool {
		if len(bids) >= depth {
			return false
		}
		level := item.(*bidItem).level
		bids = append(bids, LevelSnapshot{Price: level.price, Quantity: level.totalQuantity})
		return true
	})

	asks = make([]LevelSnapshot, 0, depth)
	ob.asks.Ascend(func(item btree.Item) bool {
		if len(asks) >= depth {
			return false
		}
		level := item.(*askItem).level
		asks = append(asks, LevelSnapshot{Price: level.price, Quantity: level.totalQuantity})
		return true
	})
	return bids, asks
}

// Submit validates, matches, and optionally rests order. It returns the
// ordered sequence of trades this call produced, possibly empty. A
// validation failure sets order.Status to Rejected and returns no trades;
// it makes no other change to the book.
func (ob *OrderBook) Submit(order *Order) []*Trade {
	if !ob.valid(order) {
		order.Status = StatusRejected
		return nil
	}

	trades := ob.match(order)

	if order.Remaining() > 0 {
		if order.Type == Limit {
			ob.addToBook(order)
		}
		// Market order residual is discarded: it never rests. Status is
		// already New (no fill) or PartiallyFilled (some fill) from match.
	}

	return trades
}

// valid runs the three checks §4.3.1 step 1 admits: nonzero quantity,
// nonempty symbol, and a positive price for limit orders. The specific
// ErrorKind a failure corresponds to (InvalidQuantity, BookNotFound,
// InvalidPriceKind) is not itself surfaced on the hot path — validation
// failures are communicated only via order.Status becoming Rejected.
func (ob *OrderBook) valid(order *Order) bool {
	if order.Quantity == 0 {
		return false
	}
	if order.Symbol == "" {
		return false
	}
	if order.Type == Limit && order.Price <= 0 {
		return false
	}
	return true
}

// match runs the fill loop against the opposite side's index, head-first
// within each level, emitting one Trade per fill and evicting fully filled
// resting orders and emptied levels as it goes.
func (ob *OrderBook) match(incoming *Order) []*Trade {
	var trades []*Trade

	opposite := ob.asks
	if incoming.Side == Sell {
		opposite = ob.bids
	}

	for incoming.Remaining() > 0 && opposite.Len() > 0 {
		level := ob.bestOppositeLevel(incoming.Side)

		if !ob.crosses(incoming, level.price) {
			break
		}

		for incoming.Remaining() > 0 && !level.Empty() {
			resting := level.Front()

			fillQty := incoming.Remaining()
			if resting.Remaining() < fillQty {
				fillQty = resting.Remaining()
			}

			incoming.fill(fillQty)
			resting.fill(fillQty)
			level.ReduceCachedQuantity(fillQty)

			trades = append(trades, ob.makeTrade(incoming, resting, level.price, fillQty))

			if resting.IsFilled() {
				loc, ok := ob.byID[resting.ID]
				if ok {
					level.Remove(loc.Elem)
					delete(ob.byID, resting.ID)
				}
			}
		}

		if level.Empty() {
			ob.evictLevel(incoming.Side.Opposite(), level.price)
		}
	}

	return trades
}

func (ob *OrderBook) bestOppositeLevel(incomingSide Side) *PriceLevel {
	if incomingSide == Buy {
		return ob.asks.Min().(*askItem).level
	}
	return ob.bids.Min().(*bidItem).level
}

// crosses implements the cross test: market orders cross any price, a buy
// limit crosses iff its price is at least the resting price, a sell limit
// crosses iff its price is at most the resting price.
func (ob *OrderBook) crosses(incoming *Order, restingPrice Price) bool {
	if incoming.Type == Market {
		return true
	}
	if incoming.Side == Buy {
		return incoming.Price >= restingPrice
	}
	return incoming.Price <= restingPrice
}

func (ob *OrderBook) makeTrade(incoming, resting *Order, price Price, qty Quantity) *Trade {
	ob.nextTradeID++
	buyID, sellID := incoming.ID, resting.ID
	if incoming.Side == Sell {
		buyID, sellID = resting.ID, incoming.ID
	}
	return &Trade{
		ID:            ob.nextTradeID,
		BuyOrderID:    buyID,
		SellOrderID:   sellID,
		Symbol:        ob.symbol,
		Price:         price,
		Quantity:      qty,
		Timestamp:     ob.clock(),
		AggressorSide: incoming.Side,
	}
}

// addToBook appends order's residual to its own side's level (creating the
// level if needed) and registers its OrderLocation in byID.
func (ob *OrderBook) addToBook(order *Order) {
	level := ob.getOrCreateLevel(order.Side, order.Price)
	elem := level.Append(order)
	ob.byID[order.ID] = &OrderLocation{
		Side:  order.Side,
		Price: order.Price,
		Elem:  elem,
		Order: order,
	}
}

func (ob *OrderBook) getOrCreateLevel(side Side, price Price) *PriceLevel {
	if existing := ob.findLevel(side, price); existing != nil {
		return existing
	}
	level := NewPriceLevel(price)
	if side == Buy {
		ob.bids.ReplaceOrInsert(&bidItem{level: level})
	} else {
		ob.asks.ReplaceOrInsert(&askItem{level: level})
	}
	return level
}

func (ob *OrderBook) findLevel(side Side, price Price) *PriceLevel {
	if side == Buy {
		probe := &bidItem{level: &PriceLevel{price: price}}
		item := ob.bids.Get(probe)
		if item == nil {
			return nil
		}
		return item.(*bidItem).level
	}
	probe := &askItem{level: &PriceLevel{price: price}}
	item := ob.asks.Get(probe)
	if item == nil {
		return nil
	}
	return item.(*askItem).level
}

func (ob *OrderBook) evictLevel(side Side, price Price) {
	if side == Buy {
		ob.bids.Delete(&bidItem{level: &PriceLevel{price: price}})
	} else {
		ob.asks.Delete(&askItem{level: &PriceLevel{price: price}})
	}
}

// Cancel removes the resting order with id from the book. A previously
// successful cancel (or a fill to completion) has already erased the id
// from byID, so a second cancel of the same id returns OrderNotFound, never
// OrderAlreadyCancelled — this is the externally observable behavior the
// reference implementation pins by removing ids from its lookup map
// immediately upon cancellation and upon full fill.
func (ob *OrderBook) Cancel(id OrderId) ErrorKind {
	loc, ok := ob.byID[id]
	if !ok {
		return OrderNotFound
	}

	order := loc.Order
	if order.Status == StatusCancelled {
		return OrderAlreadyCancelled
	}
	if order.Status == StatusFilled {
		return OrderAlreadyFilled
	}

	order.Status = StatusCancelled

	level := ob.findLevel(loc.Side, loc.Price)
	if level != nil {
		level.Remove(loc.Elem)
		if level.Empty() {
			ob.evictLevel(loc.Side, loc.Price)
		}
	}
	delete(ob.byID, id)

	return Success
}
