package registry

import (
	"sync"
	"testing"
	"time"

	"limitbook/src/engine"
)

func TestGetOrCreateCreatesOnFirstReference(t *testing.T) {
	reg := New(nil)

	book := reg.GetOrCreate("AAPL")
	if book == nil {
		t.Fatal("expected a book")
	}
	if book.OB.Symbol() != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", book.OB.Symbol())
	}

	again := reg.GetOrCreate("AAPL")
	if again != book {
		t.Error("expected a second GetOrCreate for the same symbol to return the same book")
	}
}

func TestLookupMissingSymbol(t *testing.T) {
	reg := New(nil)
	if _, ok := reg.Lookup("AAPL"); ok {
		t.Error("expected Lookup to report false before any GetOrCreate")
	}
}

func TestSnapshotIsIndependentOfLaterMutation(t *testing.T) {
	reg := New(nil)
	reg.GetOrCreate("AAPL")

	snap := reg.Snapshot()
	reg.GetOrCreate("GOOGL")

	if len(snap) != 1 {
		t.Errorf("expected snapshot to have captured only 1 book, got %d", len(snap))
	}
}

// TestConcurrentSubmitSameSymbol exercises the per-book mutex: many
// goroutines submitting to the same book must never corrupt its state, and
// the resulting order count must equal exactly how many orders were
// submitted.
func TestConcurrentSubmitSameSymbol(t *testing.T) {
	reg := New(nil)
	book := reg.GetOrCreate("AAPL")

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := engine.NewOrder(engine.OrderId(i+1), "AAPL", engine.Buy, engine.Limit, engine.Price(150_000_000+int64(i)), 10, time.Now())
			book.Submit(order)
		}(i)
	}
	wg.Wait()

	var count int
	book.Snapshot(func(ob *engine.OrderBook) {
		count = ob.OrderCount()
	})
	if count != n {
		t.Errorf("expected %d resting orders, got %d", n, count)
	}
}

func TestConcurrentGetOrCreateDifferentSymbols(t *testing.T) {
	reg := New(nil)

	symbols := []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			reg.GetOrCreate(symbol)
		}(symbol)
	}
	wg.Wait()

	snap := reg.Snapshot()
	if len(snap) != len(symbols) {
		t.Errorf("expected %d books, got %d", len(symbols), len(snap))
	}
}
