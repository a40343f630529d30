package program

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// LinkEvent is the pending part of a link: code generation handed to an
// Executor. It has no cancellation; Join blocks until the task ran.
type LinkEvent struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newLinkEvent() *LinkEvent {
	return &LinkEvent{done: make(chan struct{})}
}

// completedEvent returns an event that has already finished with err.
func completedEvent(err error) *LinkEvent {
	e := newLinkEvent()
	e.complete(err)
	return e
}

func (e *LinkEvent) complete(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// Poll reports whether the task finished, without blocking.
func (e *LinkEvent) Poll() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Join waits for the task and returns its error.
func (e *LinkEvent) Join() error {
	<-e.done
	return e.err
}

// Executor runs the asynchronous part of a link.
type Executor interface {
	Execute(task func() error) *LinkEvent
}

// SyncExecutor runs tasks on the calling goroutine.
type SyncExecutor struct{}

// Execute runs task and returns its finished event.
func (SyncExecutor) Execute(task func() error) *LinkEvent {
	return completedEvent(task())
}

// PoolExecutor runs tasks on a bounded pool of reusable workers.
type PoolExecutor struct {
	pool   worker.DynamicWorkerPool
	nextID atomic.Int64
}

// NewPoolExecutor returns an executor with up to workers goroutines and a
// queue of queueSize tasks. Idle workers exit after idle.
func NewPoolExecutor(workers, queueSize int, idle time.Duration) *PoolExecutor {
	return &PoolExecutor{pool: worker.NewDynamicWorkerPool(workers, queueSize, idle)}
}

// Execute queues task and returns its pending event.
func (p *PoolExecutor) Execute(task func() error) *LinkEvent {
	event := newLinkEvent()
	p.pool.SubmitTask(worker.Task{
		ID: int(p.nextID.Add(1)),
		Do: func() (_ any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("program: link task panicked: %v", r)
				}
				event.complete(err)
			}()
			return nil, task()
		},
	})
	return event
}
