package sched

import "code.hybscloud.com/atomix"

// fiberPool allocates a fixed number of fibers sharing one entry point and
// lends them out one at a time. A fiber is handed out exactly once between
// acquire and release; acquire spins across the idle flags rather than
// blocking, so the caller (the scheduler) must guarantee enough fibers are
// always free — see SPEC_FULL.md §5 on fiber-pool sizing.
type fiberPool struct {
	fibers []*Fiber
	idle   []atomix.Bool
}

// newFiberPool allocates n fibers, each running entry once acquired and
// switched into for the first time.
func newFiberPool(n int, entry func(f *Fiber, data any)) *fiberPool {
	p := &fiberPool{
		fibers: make([]*Fiber, n),
		idle:   make([]atomix.Bool, n),
	}
	for i := 0; i < n; i++ {
		p.fibers[i] = newFiber(i, entry)
		p.idle[i].StoreRelease(true)
	}
	return p
}

// acquire claims the first idle fiber via CAS and returns it along with its
// index. It does not block; callers relying on this routine must ensure a
// fiber is always available (the pool default of 160 fibers assumes this).
func (p *fiberPool) acquire() (*Fiber, int) {
	for {
		for i := range p.idle {
			if p.idle[i].CompareAndSwapAcqRel(true, false) {
				return p.fibers[i], i
			}
		}
	}
}

// release returns fiber idx to the pool, making it eligible for acquire again.
func (p *fiberPool) release(idx int) {
	p.idle[idx].StoreRelease(true)
}

func (p *fiberPool) size() int { return len(p.fibers) }
