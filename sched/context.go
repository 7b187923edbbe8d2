package sched

import "code.hybscloud.com/atomix"

// loopResume is the payload every switch into a work fiber carries: the
// worker-thread-local state (tls) of whichever lane is handing off control.
// Switches back to a thread fiber (on shutdown) carry nil instead.
// A fiber picks this up on every resume — not just its first — because
// resuming a parked fiber does not necessarily hand it back to the lane it
// parked from; it hands it to whichever lane happened to notice it was
// ready and switched into it. See tlsHolder.
type loopResume struct {
	tls *tls
}

// tlsHolder is the one piece of mutable state a fiber's goroutine keeps
// across its whole lifetime: which worker lane (tls) it is currently
// running as. runWorkerLoop re-reads holder.t at the top of every
// iteration instead of closing over a fixed tls, because Context.Wait can
// return with the fiber now running a different lane than the one it
// parked under — Go has no stack-switch primitive to make that swap
// implicit the way it is in the thread-per-core C++ original, so it is
// threaded through explicitly here instead.
type tlsHolder struct {
	t *tls
}

// Context is what a JobFunc receives in place of a bare *Scheduler. It
// wraps the Scheduler (for recursive AddJob/AddJobs/Wait calls) together
// with the fiber the job happens to be running on, so Context.Wait can
// perform the park/resume handoff described in SPEC_FULL.md §4.7 without
// the job needing any awareness of fibers or worker threads at all.
type Context struct {
	Scheduler *Scheduler

	fiber  *Fiber
	holder *tlsHolder
}

// Wait parks the calling job's fiber until counter reaches target, without
// blocking the underlying worker thread: if the counter has not yet
// reached target, the fiber registers as a waiter, hands its worker thread
// off to a fresh fiber from the pool (which resumes the generic worker
// loop so the thread keeps making progress on other jobs), and is resumed
// later by whichever worker's Counter.checkWaiters call observes the
// target and posts it to that worker's ready mailbox.
//
// Per SPEC_FULL.md §9, checkWaiters is always evaluated against the
// post-update counter value, never the pre-update one — Counter.Increment
// and Counter.Decrement already guarantee this internally.
func (c *Context) Wait(counter *Counter, target uint32) error {
	if counter.Value() == target {
		return nil
	}

	stored := &atomix.Bool{}
	satisfied, err := counter.AddWaiter(c.fiber.ID(), stored, target)
	if err != nil {
		return err
	}
	if satisfied {
		return nil
	}

	t := c.holder.t
	t.prevFiberIdx = c.fiber.ID()
	t.prevFiberDest = destWaiting
	t.prevFiberStored = stored

	next, idx := c.Scheduler.pool.acquire()
	t.currentFiberIdx = idx

	resumed, err := c.fiber.SwitchTo(next, &loopResume{tls: t})
	if err != nil {
		return err
	}
	if lr, ok := resumed.(*loopResume); ok && lr != nil {
		c.holder.t = lr.tls
	}
	return nil
}
