package sched

import "code.hybscloud.com/atomix"

// maxWaiters is the number of waiter slots a Counter carries. A 17th
// concurrent registration is a fatal WaiterExhaustion error.
const maxWaiters = 16

// waiterSlot holds one parked fiber's registration. The slot moves through
// three states as tracked by (free, inUse):
//   - free=true:                unused, available to AddWaiter
//   - free=false, inUse=false:  armed, waiting for value == target
//   - free=false, inUse=true:   a decrement/increment has claimed it and is
//     about to post it to a ready list; transient
//
// The tri-state exists because Increment/Decrement and AddWaiter race to be
// the one that observes the target value; whichever wins resumes the
// waiter exactly once.
type waiterSlot struct {
	fiberID int
	stored  *atomix.Bool // set true by the resuming thread once the handoff completes
	target  uint32
	inUse   atomix.Bool
}

// Counter is the wait-group primitive jobs synchronize through: a
// monotonically updated value with up to 16 registered waiters, each woken
// exactly once when the value reaches the waiter's target.
type Counter struct {
	value atomix.Uint32
	slots [maxWaiters]waiterSlot
	free  [maxWaiters]atomix.Bool
}

// NewCounter returns a Counter with value 0 and all waiter slots free.
func NewCounter() *Counter {
	c := &Counter{}
	for i := range c.free {
		c.free[i].StoreRelease(true)
	}
	return c
}

// init sets the counter's starting value. Called once at submission time —
// to 1 by AddJob, to len(jobs) by AddJobs — and must happen before any bound
// job can possibly run, or a fast job could decrement past a target no
// waiter has registered for yet.
func (c *Counter) init(n uint32) {
	c.value.StoreRelease(n)
}

// Value returns the counter's current value.
func (c *Counter) Value() uint32 {
	return c.value.LoadAcquire()
}

// onReady is invoked once per woken waiter, on whichever goroutine observed
// the counter reach that waiter's target. The scheduler supplies a closure
// that posts (fiberID, stored) onto the calling worker's ready-fiber
// mailbox (see worker.go) — this is the mechanism, not a shared slice, that
// resolves the ready-fiber race SPEC_FULL.md's Open Question §9 flags.
type onReady func(fiberID int, stored *atomix.Bool)

// Increment adds 1 and returns the post-update value, after waking any
// waiter whose target now matches.
func (c *Counter) Increment(wake onReady) uint32 {
	v := c.value.AddAcqRel(1)
	c.checkWaiters(v, wake)
	return v
}

// Decrement subtracts 1 and returns the post-update value, after waking any
// waiter whose target now matches. Called once per completed Job.
func (c *Counter) Decrement(wake onReady) uint32 {
	v := c.value.AddAcqRel(^uint32(0)) // two's complement -1
	c.checkWaiters(v, wake)
	return v
}

// AddWaiter registers fiberID to be woken (via stored) when the counter
// reaches target. If the counter already equals target, it returns
// (true, nil) and the caller need not park. If all 16 slots are currently
// armed, it returns (false, ErrWaiterExhaustion).
func (c *Counter) AddWaiter(fiberID int, stored *atomix.Bool, target uint32) (satisfied bool, err error) {
	for i := range c.free {
		if !c.free[i].CompareAndSwapAcqRel(true, false) {
			continue
		}
		slot := &c.slots[i]
		slot.fiberID = fiberID
		slot.stored = stored
		slot.target = target
		slot.inUse.StoreRelease(false)

		if c.value.LoadAcquire() == target {
			if slot.inUse.CompareAndSwapAcqRel(false, true) {
				c.free[i].StoreRelease(true)
				return true, nil
			}
		}
		return false, nil
	}
	return false, ErrWaiterExhaustion
}

// checkWaiters wakes every slot armed for exactly this value. wake may be
// called any number of times (including zero) on the caller's goroutine.
func (c *Counter) checkWaiters(value uint32, wake onReady) {
	for i := range c.slots {
		if c.free[i].LoadAcquire() {
			continue
		}
		slot := &c.slots[i]
		if slot.inUse.LoadAcquire() || slot.target != value {
			continue
		}
		if !slot.inUse.CompareAndSwapAcqRel(false, true) {
			continue
		}
		if wake != nil {
			wake(slot.fiberID, slot.stored)
		}
		c.free[i].StoreRelease(true)
	}
}
