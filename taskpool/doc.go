// Package taskpool provides a lock-free multi-producer multi-consumer FIFO
// free-list used to recycle pipeline tasks together with their frame-sized
// pixel buffers.
//
// Poll never blocks: it returns a recycled value or reports that the pool is
// empty, in which case the caller allocates a fresh value. Offer returns a
// value to the pool. A pool created with a positive limit discards values
// offered while it is full; a zero limit leaves the pool unbounded.
//
//	pool := taskpool.New[*task](0)
//	t, ok := pool.Poll()
//	if !ok {
//	    t = newTask()
//	}
//	// ... use t ...
//	pool.Offer(t)
//
// The queue is the Michael-Scott algorithm over atomic.Pointer links. The
// garbage collector rules out the ABA problem that complicates the algorithm
// in manually managed memory.
package taskpool
