package sched

// JobFunc is a client callback. It receives the Context it is running
// under — which carries the Scheduler it was submitted to, so it can
// itself call AddJob/AddJobs/Wait for recursive fan-out, and lets it park
// on a Counter via Context.Wait without blocking the worker thread it
// happens to be running on — and the opaque data pointer the caller bound
// at submission. data must outlive every job that reads it.
type JobFunc func(ctx *Context, data any)

// Priority selects which of the scheduler's three queues a Job is
// dispatched through. High always drains before Normal, which always
// drains before Low, on a given worker iteration — there is no ordering
// guarantee across priorities beyond that, and no ordering guarantee
// across producers at the same priority.
type Priority int

const (
	Low Priority = iota
	Normal
	High

	numPriorities = 3
)

// Job is an executable descriptor: a callback, the caller's opaque data,
// and an optional Counter to decrement on completion. It is trivially
// copyable — copying a Job copies the descriptor, not the callback's
// captured state, so copying into and out of a queue cell is always safe.
type Job struct {
	fn      JobFunc
	data    any
	counter *Counter
}

// NewJob constructs a Job. fn must not be nil.
func NewJob(fn JobFunc, data any) Job {
	return Job{fn: fn, data: data}
}

// execute runs the job's callback and, if bound to a counter, decrements it
// exactly once afterward. wake is forwarded to the counter's decrement so
// any waiter it wakes lands on the caller's ready-fiber mailbox.
func (j Job) execute(ctx *Context, wake onReady) {
	if j.fn != nil {
		j.fn(ctx, j.data)
	}
	if j.counter != nil {
		j.counter.Decrement(wake)
	}
}
