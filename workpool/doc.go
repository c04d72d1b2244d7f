// Package workpool implements a cached goroutine pool for filter tasks.
//
// The pool has no queue. Submit hands a task directly to an idle worker if
// one is waiting, and otherwise starts a new worker goroutine. Workers that
// stay idle for longer than the configured timeout exit, so the number of
// goroutines tracks the recent level of parallel demand. Tasks start in
// submission order whenever a worker is idle, but may complete in any order.
//
//	pool := workpool.New("filter", 60*time.Second)
//	defer pool.Close()
//
//	if err := pool.Submit(func() { process(frame) }); err != nil {
//	    // pool closed
//	}
//
// Close refuses new tasks and releases idle workers. Wait blocks until every
// worker has exited or the context is done.
package workpool
