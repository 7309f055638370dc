// Package utils holds small concerns shared by more than one layer —
// today, the worker pool the matching engine and the TCP server both
// dispatch onto.
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// WorkerFunction is generalized from the teacher's connection-handling
// signature (`func(t *tomb.Tomb, task any) error`) to any closure —
// the matching engine hands it a zero-argument job, the TCP server a
// net.Conn, both via the same `any` task slot.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool fans a bounded number of goroutines out across a task
// channel. Grounded on the teacher's internal/worker.go; generalized
// so both CPU-bound matching jobs (internal/engine) and connection
// handling (internal/net) can share one implementation.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool constructs a pool with size workers. spec.md §5 notes
// the source uses 4 for the matching dispatch pool.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, defaultTaskChanSize),
		n:     size,
	}
}

// AddTask enqueues a unit of work for the pool to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup keeps the pool topped up with size live workers until t dies.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("activeWorkers", pool.n).Msg("adding workers")
	activeWorkers := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if activeWorkers < pool.n {
				t.Go(func() error {
					err := pool.worker(t, work)
					activeWorkers--
					return err
				})
				activeWorkers++
			}
		}
	}
}

// worker waits on tasks in the pool and actions them one at a time.
func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
