package sched

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Options configures a Scheduler at construction time. Use New(opts...)
// rather than constructing Options directly; the zero value is not valid
// (queue sizes of 0 would round up to a useless capacity-2 queue).
type Options struct {
	threadCount             int
	fiberCount              int
	highPriorityQueueSize   int
	normalPriorityQueueSize int
	lowPriorityQueueSize    int
	logger                  *logrus.Logger
}

// Option configures a Scheduler. The functional-options shape mirrors the
// pool configuration idiom used across this codebase's worker-pool peers
// (an Option func(*Options) applied left to right over sensible defaults).
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		threadCount:             runtime.NumCPU(),
		fiberCount:              160,
		highPriorityQueueSize:   1024,
		normalPriorityQueueSize: 2048,
		lowPriorityQueueSize:    4096,
		logger:                  defaultLogger(),
	}
}

// WithThreadCount sets the number of worker threads. Initialize starts all
// of them, worker 0 included, as dedicated goroutines; the goroutine that
// calls Initialize is not one of them. Defaults to runtime.NumCPU().
func WithThreadCount(n int) Option {
	return func(o *Options) { o.threadCount = n }
}

// WithFiberCount sets the fiber pool size. Defaults to 160. See
// SPEC_FULL.md §5 for the sizing rule of thumb: it must exceed the maximum
// number of simultaneously parked fibers plus one per worker thread.
func WithFiberCount(n int) Option {
	return func(o *Options) { o.fiberCount = n }
}

// WithQueueSizes sets the capacity (rounded up to a power of two) of the
// high, normal, and low priority queues. Defaults are 1024/2048/4096.
func WithQueueSizes(high, normal, low int) Option {
	return func(o *Options) {
		o.highPriorityQueueSize = high
		o.normalPriorityQueueSize = normal
		o.lowPriorityQueueSize = low
	}
}

// WithLogger replaces the scheduler's structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Options) { o.logger = l }
}
