package engine

import "time"

// Price is a price scaled by PriceScale. $100.50 is represented as 100500000.
// Comparisons and arithmetic on Price are always plain integer operations;
// floating point never appears on the match path.
type Price int64

// PriceScale is the fixed-point scale factor: six fractional digits.
const PriceScale int64 = 1_000_000

// InvalidPrice is the sentinel for "no price" — valid only for Market orders.
const InvalidPrice Price = 0

// PriceFromFloat converts a decimal price to its fixed-point representation.
// Negative input is a caller error; callers must reject it before calling.
func PriceFromFloat(price float64) Price {
	return Price(price * float64(PriceScale))
}

// PriceToFloat converts a fixed-point price back to decimal, for display only.
func PriceToFloat(p Price) float64 {
	return float64(p) / float64(PriceScale)
}

// Quantity is a non-negative amount of the instrument.
type Quantity uint64

// OrderId uniquely identifies an order. 0 means unset.
type OrderId uint64

// TradeId uniquely identifies a trade, issued by a per-book strictly
// increasing sequence. 0 means unset.
type TradeId uint64

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType distinguishes limit orders (which rest) from market orders
// (whose residual is discarded, never rested).
type OrderType string

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// OrderStatus is the position of an order in its lifecycle. New and
// PartiallyFilled are the only active statuses; the rest are terminal.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// ErrorKind is the closed enumeration of outcomes returned by Cancel, plus a
// few reserved values kept for forward compatibility with validation rules
// this implementation does not currently exercise.
type ErrorKind string

const (
	Success                ErrorKind = "SUCCESS"
	OrderNotFound          ErrorKind = "ORDER_NOT_FOUND"
	OrderAlreadyCancelled   ErrorKind = "ORDER_ALREADY_CANCELLED"
	OrderAlreadyFilled      ErrorKind = "ORDER_ALREADY_FILLED"
	InvalidQuantity         ErrorKind = "INVALID_QUANTITY"
	InvalidPriceKind        ErrorKind = "INVALID_PRICE"
	BookNotFound            ErrorKind = "BOOK_NOT_FOUND"
	InsufficientLiquidity   ErrorKind = "INSUFFICIENT_LIQUIDITY"
	InvalidSide             ErrorKind = "INVALID_SIDE"
	InvalidOrderType        ErrorKind = "INVALID_ORDER_TYPE"
)

// Clock is a source of monotonic "now", injected so tests can be
// deterministic. The zero value is unusable; NewOrderBook defaults it to
// time.Now when nil.
type Clock func() time.Time
