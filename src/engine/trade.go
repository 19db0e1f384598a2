package engine

import "time"

// Trade is the immutable record of one match between a buy and a sell order
// at one price for one quantity. Once emitted from Submit, the book retains
// no reference to it.
type Trade struct {
	ID            TradeId
	BuyOrderID    OrderId
	SellOrderID   OrderId
	Symbol        string
	Price         Price
	Quantity      Quantity
	Timestamp     time.Time
	AggressorSide Side
}
