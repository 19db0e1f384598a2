package handlers

import (
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"limitbook/adapters/tradesink"
	"limitbook/src/engine"
	"limitbook/src/models"
	"limitbook/src/registry"
)

// orderRecord is the handler's own record of a caller-owned order: the HTTP
// layer is the "caller" in the core's ownership model, so it is the one
// responsible for keeping an Order reachable (and therefore queryable by
// status) for as long as it cares to, even after the core has dropped its
// own reference on fill or cancel.
type orderRecord struct {
	Order  *engine.Order
	Book   *registry.Book
	Symbol string
}

type OrderHandler struct {
	Registry  *registry.Registry
	TradeSink tradesink.Sink
	StartTime time.Time

	OrdersReceived  int64
	OrdersMatched   int64
	OrdersCancelled int64
	TradesExecuted  int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int

	recordsMu    sync.RWMutex
	records      map[string]*orderRecord
	nextEngineID atomic.Uint64
}

func NewOrderHandler(reg *registry.Registry) *OrderHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &OrderHandler{
		Registry:     reg,
		TradeSink:    tradesink.FromEnv(),
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
		records:      make(map[string]*orderRecord),
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	side, orderType, err := parseSideAndType(&req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Str("side", req.Side).
			Str("type", req.Type).
			Str("ip", c.IP()).
			Msg("Invalid order request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	orderID := uuid.New().String()
	engineID := engine.OrderId(h.nextEngineID.Add(1))

	order := engine.NewOrder(engineID, req.Symbol, side, orderType, engine.Price(req.Price), engine.Quantity(req.Quantity), time.Now())

	startTime := time.Now()

	log.Info().
		Str("order_id", orderID).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Str("type", req.Type).
		Int64("price", req.Price).
		Uint64("quantity", req.Quantity).
		Str("ip", c.IP()).
		Msg("Order submitted")

	atomic.AddInt64(&h.OrdersReceived, 1)

	book := h.Registry.GetOrCreate(req.Symbol)
	trades := book.Submit(order)

	latency := time.Since(startTime)
	h.recordLatency(latency)

	h.recordsMu.Lock()
	h.records[orderID] = &orderRecord{Order: order, Book: book, Symbol: req.Symbol}
	h.recordsMu.Unlock()

	tradeInfos := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		tradeInfos = append(tradeInfos, models.TradeInfo{
			TradeID:   uint64(trade.ID),
			Price:     int64(trade.Price),
			Quantity:  uint64(trade.Quantity),
			Timestamp: trade.Timestamp.UnixMilli(),
		})
	}

	response := models.SubmitOrderResponse{
		OrderID:           orderID,
		Status:            string(order.Status),
		FilledQuantity:    uint64(order.Filled),
		RemainingQuantity: uint64(order.Remaining()),
		Trades:            tradeInfos,
	}

	if order.Status == engine.StatusPartiallyFilled || order.Status == engine.StatusFilled {
		atomic.AddInt64(&h.OrdersMatched, 1)
	}
	atomic.AddInt64(&h.TradesExecuted, int64(len(tradeInfos)))

	if len(trades) > 0 {
		if err := h.TradeSink.Publish(c.Context(), trades); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("Trade sink publish failed")
		}
	}

	log.Info().
		Str("order_id", orderID).
		Str("status", string(order.Status)).
		Uint64("filled_quantity", uint64(order.Filled)).
		Uint64("remaining_quantity", uint64(order.Remaining())).
		Int("trades_count", len(trades)).
		Msg("Order processed")

	switch order.Status {
	case engine.StatusRejected:
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Order rejected: invalid quantity, price, or symbol",
		})
	case engine.StatusNew:
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case engine.StatusPartiallyFilled:
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	h.recordsMu.RLock()
	record, exists := h.records[orderID]
	h.recordsMu.RUnlock()

	if !exists {
		log.Warn().
			Str("order_id", orderID).
			Str("ip", c.IP()).
			Msg("Cancel order: order not found")
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	result := record.Book.Cancel(record.Order.ID)

	switch result {
	case engine.Success:
		atomic.AddInt64(&h.OrdersCancelled, 1)
		log.Info().
			Str("order_id", orderID).
			Str("symbol", record.Symbol).
			Str("ip", c.IP()).
			Msg("Order cancelled")
		return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
			OrderID: orderID,
			Status:  string(engine.StatusCancelled),
		})
	case engine.OrderAlreadyCancelled, engine.OrderAlreadyFilled:
		log.Warn().
			Str("order_id", orderID).
			Str("result", string(result)).
			Msg("Cancel order: order already terminal")
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: "Cannot cancel: " + string(result),
		})
	default: // OrderNotFound
		log.Warn().
			Str("order_id", orderID).
			Msg("Cancel order: order not resting")
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	defaultDepth := 10
	if envDepth := os.Getenv("ORDERBOOK_DEFAULT_DEPTH"); envDepth != "" {
		if parsed, err := strconv.Atoi(envDepth); err == nil && parsed > 0 {
			defaultDepth = parsed
		}
	}

	maxDepth := 1000
	if envMaxDepth := os.Getenv("ORDERBOOK_MAX_DEPTH"); envMaxDepth != "" {
		if parsed, err := strconv.Atoi(envMaxDepth); err == nil && parsed > 0 {
			maxDepth = parsed
		}
	}

	depthStr := c.Query("depth", strconv.Itoa(defaultDepth))
	depth, err := strconv.Atoi(depthStr)
	if err != nil || depth <= 0 {
		depth = defaultDepth
	}

	// edge case: enforce maximum depth limit
	if depth > maxDepth {
		depth = maxDepth
	}

	book := h.Registry.GetOrCreate(symbol)

	var bidsLevels, asksLevels []engine.LevelSnapshot
	book.Snapshot(func(ob *engine.OrderBook) {
		bidsLevels, asksLevels = ob.DepthSnapshot(depth)
	})

	bids := make([]models.PriceLevelInfo, 0, len(bidsLevels))
	for _, level := range bidsLevels {
		bids = append(bids, models.PriceLevelInfo{
			Price:    int64(level.Price),
			Quantity: uint64(level.Quantity),
		})
	}

	asks := make([]models.PriceLevelInfo, 0, len(asksLevels))
	for _, level := range asksLevels {
		asks = append(asks, models.PriceLevelInfo{
			Price:    int64(level.Price),
			Quantity: uint64(level.Quantity),
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Symbol:    symbol,
		Timestamp: time.Now().UnixMilli(),
		Bids:      bids,
		Asks:      asks,
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")

	h.recordsMu.RLock()
	record, exists := h.records[orderID]
	h.recordsMu.RUnlock()

	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	order := record.Order
	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:        orderID,
		Symbol:         order.Symbol,
		Side:           string(order.Side),
		Type:           string(order.Type),
		Price:          int64(order.Price),
		Quantity:       uint64(order.Quantity),
		FilledQuantity: uint64(order.Filled),
		Status:         string(order.Status),
		Timestamp:      order.CreatedAt.UnixMilli(),
	})
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()

	var ordersProcessed int64
	for _, book := range h.Registry.Snapshot() {
		book.Snapshot(func(ob *engine.OrderBook) {
			ordersProcessed += int64(ob.OrderCount())
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(uptime),
		OrdersProcessed: ordersProcessed,
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	var ordersInBook int64
	for _, book := range h.Registry.Snapshot() {
		book.Snapshot(func(ob *engine.OrderBook) {
			ordersInBook += int64(ob.OrderCount())
		})
	}

	p50, p99, p999 := h.calculateLatencyPercentiles()
	throughput := h.calculateThroughput()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         atomic.LoadInt64(&h.OrdersReceived),
		OrdersMatched:          atomic.LoadInt64(&h.OrdersMatched),
		OrdersCancelled:        atomic.LoadInt64(&h.OrdersCancelled),
		OrdersInBook:           ordersInBook,
		TradesExecuted:         atomic.LoadInt64(&h.TradesExecuted),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: throughput,
	})
}

func (h *OrderHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		removeCount := len(h.latencies) - h.maxLatencies
		h.latencies = h.latencies[removeCount:]
	}
}

func (h *OrderHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0, 0
	}

	latenciesCopy := make([]time.Duration, len(h.latencies))
	copy(latenciesCopy, h.latencies)

	sort.Slice(latenciesCopy, func(i, j int) bool {
		return latenciesCopy[i] < latenciesCopy[j]
	})

	p50Index := int(float64(len(latenciesCopy)) * 0.50)
	p99Index := int(float64(len(latenciesCopy)) * 0.99)
	p999Index := int(float64(len(latenciesCopy)) * 0.999)

	// edge case: ensure indices are within bounds
	if p50Index >= len(latenciesCopy) {
		p50Index = len(latenciesCopy) - 1
	}
	if p99Index >= len(latenciesCopy) {
		p99Index = len(latenciesCopy) - 1
	}
	if p999Index >= len(latenciesCopy) {
		p999Index = len(latenciesCopy) - 1
	}

	p50 = float64(latenciesCopy[p50Index].Nanoseconds()) / 1e6
	p99 = float64(latenciesCopy[p99Index].Nanoseconds()) / 1e6
	p999 = float64(latenciesCopy[p999Index].Nanoseconds()) / 1e6

	return p50, p99, p999
}

func (h *OrderHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}

	ordersReceived := atomic.LoadInt64(&h.OrdersReceived)
	return float64(ordersReceived) / uptime
}

// parseSideAndType translates the request's freeform strings into the
// core's closed Side/OrderType enumerations. This is the one place those
// enumerations are "open" to rejection: once a valid Order exists, Side and
// OrderType are guaranteed to hold one of their declared values.
func parseSideAndType(req *models.SubmitOrderRequest) (engine.Side, engine.OrderType, error) {
	if req.Symbol == "" {
		return "", "", &ValidationError{Message: "Invalid order: symbol is required"}
	}

	var side engine.Side
	switch req.Side {
	case "BUY":
		side = engine.Buy
	case "SELL":
		side = engine.Sell
	default:
		return "", "", &ValidationError{Message: "Invalid order: side must be BUY or SELL"}
	}

	var orderType engine.OrderType
	switch req.Type {
	case "LIMIT":
		orderType = engine.Limit
	case "MARKET":
		orderType = engine.Market
	default:
		return "", "", &ValidationError{Message: "Invalid order: type must be LIMIT or MARKET"}
	}

	if req.Quantity == 0 {
		return "", "", &ValidationError{Message: "Invalid order: quantity must be positive"}
	}

	// edge case: price required for limit orders
	if orderType == engine.Limit && req.Price <= 0 {
		return "", "", &ValidationError{Message: "Invalid order: price must be positive for LIMIT orders"}
	}

	return side, orderType, nil
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
