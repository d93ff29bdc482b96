package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// dispatcher hands bookkeeping work to a single background consumer. A full
// queue drops the job instead of blocking the request path.
type dispatcher struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan job
	done    chan struct{}
	dropped atomic.Int64
}

type job struct {
	name string
	fn   func()
}

func newDispatcher(size int) *dispatcher {
	if size <= 0 {
		size = 1
	}
	d := &dispatcher{
		jobs: make(chan job, size),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for j := range d.jobs {
		d.exec(j)
	}
}

func (d *dispatcher) exec(j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorw("gateway: background job panicked", "job", j.name, "panic", r)
		}
	}()
	j.fn()
}

// submit enqueues fn without blocking. It reports false when the job was
// dropped because the queue is full or the dispatcher is closed.
func (d *dispatcher) submit(name string, fn func()) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.jobs <- job{name: name, fn: fn}:
		return true
	default:
		n := d.dropped.Add(1)
		logger.L().Warnw("gateway: background queue full, record dropped", "job", name, "dropped_total", n)
		return false
	}
}

// close stops accepting jobs and waits for queued ones to finish.
func (d *dispatcher) close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	<-d.done
}
