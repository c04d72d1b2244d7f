package pipeline

import "sync/atomic"

// DropReason classifies why a filtered frame was not posted.
type DropReason int

const (
	// DropOutOfOrder means a newer frame was already posted.
	DropOutOfOrder DropReason = iota
	// DropStaleSource means the frame came from a retired source.
	DropStaleSource
	// DropStaleFilter means the filter was replaced while the frame was in flight.
	DropStaleFilter
	// DropFilterError means the filter failed or panicked.
	DropFilterError
	// DropNoCanvas means the display had no canvas available.
	DropNoCanvas
	// DropPostFailed means the display refused the finished canvas.
	DropPostFailed

	numDropReasons
)

// String returns the reason as used in log fields.
func (r DropReason) String() string {
	switch r {
	case DropOutOfOrder:
		return "out_of_order"
	case DropStaleSource:
		return "stale_source"
	case DropStaleFilter:
		return "stale_filter"
	case DropFilterError:
		return "filter_error"
	case DropNoCanvas:
		return "no_canvas"
	case DropPostFailed:
		return "post_failed"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Ingested   uint64 // Full frames received from sources
	Posted     uint64 // Frames posted to the display
	Undersized uint64 // Deliveries without bytes
	Recycled   uint64 // Raw buffers returned to sources

	DroppedOutOfOrder  uint64
	DroppedStaleSource uint64
	DroppedStaleFilter uint64
	DroppedFilterError uint64
	DroppedNoCanvas    uint64
	DroppedPostFailed  uint64

	TasksAllocated     uint64 // Tasks created because the pool was empty
	ImageReallocations uint64 // Task image planes replaced after a geometry change

	InFlight     int64 // Tasks between ingest and recycling
	PeakInFlight int64
	PooledTasks  int // Idle tasks in the task pool
	Workers      int // Live worker goroutines
	PeakWorkers  int

	FPS        float64 // Last measured framerate
	Generation uint64  // Source generation, incremented by every SetSource
	SourceID   string  // Current source attachment, empty when detached
}

// Dropped returns the total of all drop counters.
func (s Stats) Dropped() uint64 {
	return s.DroppedOutOfOrder + s.DroppedStaleSource + s.DroppedStaleFilter +
		s.DroppedFilterError + s.DroppedNoCanvas + s.DroppedPostFailed
}

// counters holds the live values behind Stats.
type counters struct {
	ingested           atomic.Uint64
	posted             atomic.Uint64
	undersized         atomic.Uint64
	recycled           atomic.Uint64
	dropped            [numDropReasons]atomic.Uint64
	tasksAllocated     atomic.Uint64
	imageReallocations atomic.Uint64
	inFlight           atomic.Int64
	peakInFlight       atomic.Int64
}

func (c *counters) enter() {
	n := c.inFlight.Add(1)
	for {
		peak := c.peakInFlight.Load()
		if n <= peak || c.peakInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (c *counters) leave() {
	c.inFlight.Add(-1)
}
