// Package tradesink publishes executed trades to Redis pub/sub. It sits
// outside the core's import graph entirely: the matching engine and the
// registry never import this package, and a publish failure here is logged
// and swallowed, never surfaced to an HTTP caller.
package tradesink

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"limitbook/src/engine"
)

// Sink publishes a batch of trades produced by a single Submit call.
type Sink interface {
	Publish(ctx context.Context, trades []*engine.Trade) error
}

// RedisSink publishes each trade as a JSON message on the "trades:<symbol>"
// channel, mirroring the reference implementation's single "PUBLISH trades
// <msg>" call but keyed per-symbol so subscribers can follow one instrument.
type RedisSink struct {
	client *redis.Client
}

type tradeMessage struct {
	TradeID       uint64 `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         int64  `json:"price"` // fixed-point, scale 1e6
	Quantity      uint64 `json:"quantity"`
	BuyOrderID    uint64 `json:"buy_order_id"`
	SellOrderID   uint64 `json:"sell_order_id"`
	AggressorSide string `json:"aggressor_side"`
	Timestamp     int64  `json:"timestamp"` // unix timestamp in milliseconds
}

// NewRedisSink dials addr and verifies the connection with a PING, the same
// connect-and-verify step the reference RedisPublisher does in its
// constructor.
func NewRedisSink(addr string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisSink{client: client}, nil
}

// Publish sends each trade to its symbol's channel. It publishes what it
// can and returns the first error encountered, after attempting every
// trade in the batch.
func (s *RedisSink) Publish(ctx context.Context, trades []*engine.Trade) error {
	var firstErr error
	for _, trade := range trades {
		msg := tradeMessage{
			TradeID:       uint64(trade.ID),
			Symbol:        trade.Symbol,
			Price:         int64(trade.Price),
			Quantity:      uint64(trade.Quantity),
			BuyOrderID:    uint64(trade.BuyOrderID),
			SellOrderID:   uint64(trade.SellOrderID),
			AggressorSide: string(trade.AggressorSide),
			Timestamp:     trade.Timestamp.UnixMilli(),
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		channel := "trades:" + trade.Symbol
		if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close releases the underlying connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// NoopSink discards every trade. Used when REDIS_TRADE_SINK_ENABLED is
// unset so callers never need a nil check.
type NoopSink struct{}

func (NoopSink) Publish(ctx context.Context, trades []*engine.Trade) error { return nil }

// FromEnv builds a Sink from REDIS_TRADE_SINK_ENABLED / REDIS_ADDR. A dial
// failure is logged and downgrades to NoopSink rather than failing startup
// — the trade sink is an observability nicety, not a dependency the engine
// needs to run.
func FromEnv() Sink {
	if os.Getenv("REDIS_TRADE_SINK_ENABLED") != "1" {
		return NoopSink{}
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	sink, err := NewRedisSink(addr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Trade sink: failed to connect to Redis, disabling")
		return NoopSink{}
	}

	log.Info().Str("addr", addr).Msg("Trade sink: publishing trades to Redis")
	return sink
}
