package server

import (
	"context"
	"errors"
	"fmt"
)

var errWorkerStopped = errors.New("worker stopped")

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*Runner) any
	done chan workResult
}

// workResult holds the return value from a Runner operation.
type workResult struct {
	value any
	err   error
}

// Worker serializes all evaluation through a single goroutine. Programs may
// run for a long time; handlers queue behind the worker instead of running
// machines side by side.
type Worker struct {
	runner   *Runner
	requests chan workRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(r *Runner) *Worker {
	w := &Worker{
		runner:   r,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			req.done <- result
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the Runner, recovering from panics.
func (w *Worker) execute(fn func(*Runner) any) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.runner)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes or ctx is done. A request abandoned after it was
// queued still runs; its result is dropped.
func (w *Worker) Do(ctx context.Context, fn func(*Runner) any) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}

// Runner returns the Runner the worker drives.
func (w *Worker) Runner() *Runner {
	return w.runner
}
