package pathfind

import (
	"log"

	"ravaged-planets/internal/vector"
)

// RequestQueueSize bounds the worker's inbox. Requests beyond this are
// dropped with a log line rather than blocking the simulation tick.
const RequestQueueSize = 256

// Request asks the worker for a path. The callback runs on the worker
// goroutine; the requesting component must hand the result across to the
// simulation thread itself (Pathing uses a mutex-guarded adoption slot).
type Request struct {
	Start    vector.Vec3
	Goal     vector.Vec3
	Callback func(path []vector.Vec3)

	stop bool
}

// Worker owns a PathFind instance and serves requests one at a time from
// a bounded multi-producer single-consumer queue.
type Worker struct {
	pf       *PathFind
	requests chan Request
	done     chan struct{}
	started  bool
}

// NewWorker creates a worker over the given collision grid. Call Start to
// launch the consumer goroutine.
func NewWorker(pf *PathFind) *Worker {
	return &Worker{
		pf:       pf,
		requests: make(chan Request, RequestQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Idempotent.
func (w *Worker) Start() {
	if w.started {
		return
	}
	w.started = true
	go w.run()
}

// Stop drains and terminates the worker via a sentinel request, then
// waits for the goroutine to exit. A no-op if the worker never started.
func (w *Worker) Stop() {
	if !w.started {
		return
	}
	w.requests <- Request{stop: true}
	<-w.done
}

// Enqueue submits a request. Returns false when the queue is full and the
// request was dropped; the requester simply retries on a later tick.
func (w *Worker) Enqueue(req Request) bool {
	select {
	case w.requests <- req:
		return true
	default:
		log.Printf("pathfind: queue full, dropping request %v -> %v", req.Start, req.Goal)
		return false
	}
}

// QueueDepth reports the current inbox length for metrics.
func (w *Worker) QueueDepth() int { return len(w.requests) }

func (w *Worker) run() {
	defer close(w.done)
	for req := range w.requests {
		if req.stop {
			return
		}
		path := w.pf.Simplify(w.pf.Find(req.Start, req.Goal))
		if req.Callback != nil {
			req.Callback(path)
		}
	}
}
