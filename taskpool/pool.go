package taskpool

import (
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Pool is a lock-free FIFO of recycled values. The zero value is not usable;
// create pools with New.
type Pool[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]

	size      atomic.Int64
	limit     int64
	discarded atomic.Uint64
}

// New creates an empty pool. A positive limit caps the number of pooled
// values; zero or less means unbounded.
func New[T any](limit int) *Pool[T] {
	p := &Pool[T]{}
	if limit > 0 {
		p.limit = int64(limit)
	}
	sentinel := &node[T]{}
	p.head.Store(sentinel)
	p.tail.Store(sentinel)
	return p
}

// Offer appends v to the pool. It returns false, dropping v, when the pool is
// at its limit.
func (p *Pool[T]) Offer(v T) bool {
	if n := p.size.Add(1); p.limit > 0 && n > p.limit {
		p.size.Add(-1)
		p.discarded.Add(1)
		return false
	}

	n := &node[T]{value: v}
	for {
		tail := p.tail.Load()
		next := tail.next.Load()
		if tail != p.tail.Load() {
			continue
		}
		if next != nil {
			// tail is lagging; help it forward
			p.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			p.tail.CompareAndSwap(tail, n)
			return true
		}
	}
}

// Poll removes and returns the oldest pooled value. The boolean is false when
// the pool is empty.
func (p *Pool[T]) Poll() (T, bool) {
	for {
		head := p.head.Load()
		tail := p.tail.Load()
		next := head.next.Load()
		if head != p.head.Load() {
			continue
		}
		if next == nil {
			var zero T
			return zero, false
		}
		if head == tail {
			p.tail.CompareAndSwap(tail, next)
			continue
		}
		// next becomes the new sentinel; its value is read before the swap
		// and left in place for concurrent readers of the old head.
		v := next.value
		if p.head.CompareAndSwap(head, next) {
			p.size.Add(-1)
			return v, true
		}
	}
}

// Len returns the number of pooled values. Under concurrent use the result
// is a momentary approximation.
func (p *Pool[T]) Len() int {
	n := p.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Limit returns the configured cap, or zero when unbounded.
func (p *Pool[T]) Limit() int {
	return int(p.limit)
}

// Discarded returns how many values were dropped because the pool was full.
func (p *Pool[T]) Discarded() uint64 {
	return p.discarded.Load()
}
