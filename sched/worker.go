package sched

import (
	"runtime"

	"code.hybscloud.com/atomix"
	"github.com/sirupsen/logrus"
)

func numCPU() int { return runtime.NumCPU() }

// fiberDestination records what should happen to the fiber a worker just
// switched away from, once the switch lands on whichever thread resumes it
// next. It is a tagged enum with exactly three variants — kept as such
// rather than reached for an interface, since there is no behavior to
// polymorphize over, only a handoff outcome to branch on once.
type fiberDestination int

const (
	destNone fiberDestination = iota
	destPool
	destWaiting
)

// readyEntry is one fiber a Counter has marked resumable, posted onto the
// mailbox of the worker lane that started the job whose decrement reached
// the fiber's target (see runJob), not of the lane the fiber parked from.
type readyEntry struct {
	fiberID int
	stored  *atomix.Bool
}

// tls is a worker thread's local state: which fiber it is currently running,
// the handoff bookkeeping for the fiber it last switched away from, and the
// mailbox of fibers some other thread's Counter has woken on its behalf.
//
// ready is a many-producer single-consumer mailbox: any worker's
// Counter.Decrement/Increment may post into it (from checkWaiters, running
// on whichever thread happened to cause the decrement), but only the owning
// worker ever drains it. This is the explicit resolution of the ready-fiber
// race SPEC_FULL.md documents as an Open Question — a synchronized queue,
// not a plain slice touched from two threads without coordination.
type tls struct {
	index       int
	threadFiber *Fiber

	currentFiberIdx int

	prevFiberIdx    int
	prevFiberDest   fiberDestination
	prevFiberStored *atomix.Bool

	ready  *queue[readyEntry]
	logger *logrus.Logger
}

func newTls(index int, readyMailboxSize int, logger *logrus.Logger) *tls {
	return &tls{
		index:         index,
		prevFiberDest: destNone,
		ready:         newQueue[readyEntry](readyMailboxSize),
		logger:        logger,
	}
}

// postReady is the onReady hook passed to Counter.Increment/Decrement calls
// made while executing on this worker. It is safe to call from any thread —
// the mailbox is lock-free MPSC — and never blocks: readyMailboxSize is
// sized generously enough (fiber pool size) that a full mailbox would
// indicate a fiber-pool sizing bug rather than a transient condition, so a
// failed push is dropped with a warning log line instead of retried
// forever. This relies on cap(t.ready) >= fiberCount, the same invariant
// newTls's caller (Scheduler.runWorkerThread) already assumes for the pool
// itself — a dropped wake-up here means the fiber it was meant for never
// resumes, so this path should never actually trigger in practice.
func (t *tls) postReady(fiberID int, stored *atomix.Bool) {
	if err := t.ready.tryPush(readyEntry{fiberID: fiberID, stored: stored}); err != nil {
		t.logger.WithFields(logrus.Fields{
			"worker_index": t.index,
			"fiber_id":     fiberID,
		}).Warn("sched: ready mailbox full, dropping wake-up")
	}
}
