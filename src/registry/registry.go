// Package registry is the service-layer symbol router the core order book
// deliberately stays ignorant of. The core (src/engine) is a single-writer,
// single-threaded data structure; this package is where the HTTP shell's
// concurrent request handling gets reconciled with that contract — one
// mutex per book, guarding exactly the operations on that book, plus one
// mutex guarding the symbol->book map itself.
package registry

import (
	"sync"

	"limitbook/src/engine"
)

// Book pairs a core OrderBook with the lock the service layer takes before
// calling any of its mutating methods. The lock lives here, not inside
// engine.OrderBook, so the core stays a pure sequential computation that
// unit tests can drive without any synchronization at all.
type Book struct {
	OB *engine.OrderBook
	mu sync.Mutex
}

// Submit serializes access to the underlying book's Submit.
func (b *Book) Submit(order *engine.Order) []*engine.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.OB.Submit(order)
}

// Cancel serializes access to the underlying book's Cancel.
func (b *Book) Cancel(id engine.OrderId) engine.ErrorKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.OB.Cancel(id)
}

// Snapshot runs fn with the book's lock held, for read operations (depth
// queries, order lookups) that need a consistent view across several calls
// into the core.
func (b *Book) Snapshot(fn func(*engine.OrderBook)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.OB)
}

// Registry maps symbol to Book, creating books lazily on first reference.
type Registry struct {
	books map[string]*Book
	mu    sync.RWMutex
	clock engine.Clock
}

// New creates an empty registry. clock is threaded into every book created
// through it, so a test registry can run on a deterministic clock.
func New(clock engine.Clock) *Registry {
	return &Registry{
		books: make(map[string]*Book),
		clock: clock,
	}
}

// GetOrCreate returns the book for symbol, creating it if this is the first
// reference. Uses a double-checked lock so the common (book already exists)
// case only takes a read lock.
func (r *Registry) GetOrCreate(symbol string) *Book {
	r.mu.RLock()
	if book, ok := r.books[symbol]; ok {
		r.mu.RUnlock()
		return book
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok := r.books[symbol]; ok {
		return book
	}

	book := &Book{OB: engine.NewOrderBook(symbol, r.clock)}
	r.books[symbol] = book
	return book
}

// Lookup returns the book for symbol without creating it.
func (r *Registry) Lookup(symbol string) (*Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[symbol]
	return book, ok
}

// Snapshot returns a shallow copy of the registry's symbol->book map, safe
// to iterate without holding the registry lock — used by health/metrics
// endpoints that walk every book.
func (r *Registry) Snapshot() map[string]*Book {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string]*Book, len(r.books))
	for symbol, book := range r.books {
		snapshot[symbol] = book
	}
	return snapshot
}
