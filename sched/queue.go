package sched

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// queue is a fixed-capacity, lock-free multi-producer multi-consumer FIFO.
//
// It implements the Vyukov bounded MPMC algorithm: each cell carries its own
// sequence number, advanced by exactly one producer and one consumer per
// lap, so enqueue and dequeue only ever contend with each other on the same
// cell, never globally. Capacity must be a power of two (rounded up by
// newQueue). Cells are padded to a cache line apart to avoid false sharing
// between the producer and consumer positions.
//
// Grounded on the sequence-per-cell algorithm in code.hybscloud.com/lfq's
// MPMCSeq, generalized to any element type — the scheduler instantiates it
// once per priority for Job descriptors and once per worker (single
// consumer, many producers) for the ready-fiber mailbox.
type queue[T any] struct {
	_    pad
	tail atomix.Uint64 // next slot a producer will claim
	_    pad
	head atomix.Uint64 // next slot a consumer will claim
	_    pad
	buf  []queueCell[T]
	mask uint64
}

type queueCell[T any] struct {
	seq   atomix.Uint64
	value T
	_     padShort
}

type pad [64]byte
type padShort [64 - 8]byte

func roundToPow2(n int) uint64 {
	if n < 2 {
		n = 2
	}
	v := uint64(n)
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// newQueue creates a bounded queue. capacity rounds up to the next power of two.
func newQueue[T any](capacity int) *queue[T] {
	n := roundToPow2(capacity)
	q := &queue[T]{
		buf:  make([]queueCell[T], n),
		mask: n - 1,
	}
	for i := uint64(0); i < n; i++ {
		q.buf[i].seq.StoreRelaxed(i)
	}
	return q
}

func (q *queue[T]) cap() int {
	return int(q.mask + 1)
}

// tryPush enqueues value without blocking. Returns errFull if the queue has
// no free cell.
func (q *queue[T]) tryPush(value T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		cell := &q.buf[tail&q.mask]
		seq := cell.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				cell.value = value
				cell.seq.StoreRelease(tail + 1)
				return nil
			}
		case diff < 0:
			return errFull
		}
		sw.Once()
	}
}

// tryPop dequeues a value without blocking. Returns errEmpty if none is ready.
func (q *queue[T]) tryPop() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		cell := &q.buf[head&q.mask]
		seq := cell.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		switch {
		case diff == 0:
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				value := cell.value
				var zero T
				cell.value = zero
				cell.seq.StoreRelease(head + q.mask + 1)
				return value, nil
			}
		case diff < 0:
			var zero T
			return zero, errEmpty
		}
		sw.Once()
	}
}
