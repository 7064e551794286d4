package generate

import "golang.org/x/sync/errgroup"

// Executor runs asynchronous generation work on a single worker so that
// completion handling for one invocation never interleaves with another's
// tag-file mutation. Submitting while a task is in flight blocks until the
// worker frees, which serializes invocations without a file lock.
type Executor struct {
	group errgroup.Group
}

// NewExecutor constructs an Executor with a single-worker limit.
func NewExecutor() *Executor {
	executor := &Executor{}
	executor.group.SetLimit(1)
	return executor
}

// Submit schedules task on the executor's worker.
func (executor *Executor) Submit(task func() error) {
	executor.group.Go(task)
}

// Wait blocks until every submitted task has completed and returns the first
// error any of them produced.
func (executor *Executor) Wait() error {
	return executor.group.Wait()
}
