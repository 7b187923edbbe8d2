package sched

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, threads int) *Scheduler {
	t.Helper()
	s := New(WithThreadCount(threads), WithFiberCount(64))
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Shutdown(true) })
	return s
}

func TestSchedulerAddJobsEmptyFanoutCompletesImmediately(t *testing.T) {
	s := newTestScheduler(t, 2)
	c := NewCounter()

	require.NoError(t, s.AddJobs(nil, c, Normal))
	s.Wait(c, 0)
	assert.Equal(t, uint32(0), c.Value())
}

func TestSchedulerAddJobSingleCompletes(t *testing.T) {
	s := newTestScheduler(t, 2)
	c := NewCounter()

	var ran int32
	job := NewJob(func(ctx *Context, data any) {
		atomic.AddInt32(&ran, 1)
	}, nil)

	require.NoError(t, s.AddJob(job, c, Normal))
	s.Wait(c, 0)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestSchedulerParallelSum(t *testing.T) {
	s := newTestScheduler(t, 4)
	c := NewCounter()

	const n = 1024
	var sum int64
	jobs := make([]Job, n)
	for i := 0; i < n; i++ {
		v := int64(i + 1)
		jobs[i] = NewJob(func(ctx *Context, data any) {
			atomic.AddInt64(&sum, v)
		}, nil)
	}

	require.NoError(t, s.AddJobs(jobs, c, Normal))
	s.Wait(c, 0)

	want := int64(n) * int64(n+1) / 2
	assert.Equal(t, want, atomic.LoadInt64(&sum))
}

// mergeSortParts bounds parallel fanout: a part fans into two children only
// while its part count is still above 1, halving the count each level, and
// sorts directly once it reaches 1 — at most mergeSortParts-1 fibers are
// ever parked at once, independent of len(buf). An unbounded halve-until-
// len<=1 recursion would instead park one fiber per internal tree node,
// which exhausts a pool sized for a fixed fiber count on any sufficiently
// large input. Grounded on original_source's main.cpp PartCount=16 scheme.
const mergeSortParts = 16

type mergeSortTask struct {
	partCount int
	buf       []int
}

// mergeSort demonstrates a job that fans out two child jobs and parks on
// its own Context.Wait until they complete — the recursive divide-and-
// conquer case that requires genuine fiber parking (the thread must keep
// servicing other jobs while this one is suspended).
func mergeSort(ctx *Context, data any) {
	task := data.(*mergeSortTask)
	if task.partCount <= 1 || len(task.buf) <= 1 {
		sort.Ints(task.buf)
		return
	}
	mid := len(task.buf) / 2
	leftCount := task.partCount / 2
	rightCount := task.partCount - leftCount
	left := &mergeSortTask{partCount: leftCount, buf: task.buf[:mid]}
	right := &mergeSortTask{partCount: rightCount, buf: task.buf[mid:]}

	c := NewCounter()
	err := ctx.Scheduler.AddJobs([]Job{
		NewJob(mergeSort, left),
		NewJob(mergeSort, right),
	}, c, Normal)
	if err != nil {
		panic(err)
	}
	if err := ctx.Wait(c, 0); err != nil {
		panic(err)
	}

	merged := make([]int, 0, len(task.buf))
	i, j := 0, 0
	for i < len(left.buf) && j < len(right.buf) {
		if left.buf[i] <= right.buf[j] {
			merged = append(merged, left.buf[i])
			i++
		} else {
			merged = append(merged, right.buf[j])
			j++
		}
	}
	merged = append(merged, left.buf[i:]...)
	merged = append(merged, right.buf[j:]...)
	copy(task.buf, merged)
}

func TestSchedulerRecursiveMergeSort(t *testing.T) {
	s := newTestScheduler(t, 4)

	rng := rand.New(rand.NewSource(1))
	data := make([]int, 1024)
	for i := range data {
		data[i] = rng.Intn(1_000_000)
	}
	want := append([]int(nil), data...)
	sort.Ints(want)

	c := NewCounter()
	task := &mergeSortTask{partCount: mergeSortParts, buf: data}
	require.NoError(t, s.AddJob(NewJob(mergeSort, task), c, Normal))
	s.Wait(c, 0)

	assert.Equal(t, want, data)
}

func TestSchedulerPriorityOrderingSingleWorker(t *testing.T) {
	s := newTestScheduler(t, 1)

	// Occupy the lone worker with a gated job first, so low/normal/high can
	// all be queued up before it drains anything — otherwise the worker
	// could race ahead and pop "low" before "high" is even submitted.
	gate := make(chan struct{})
	gateDone := NewCounter()
	require.NoError(t, s.AddJob(NewJob(func(ctx *Context, data any) {
		<-gate
	}, nil), gateDone, Normal))

	// A Counter is initialized once per AddJob/AddJobs call and is meant to
	// be owned by a single submission; sharing one across three separate
	// AddJob calls would have each call's counter.init(1) clobber the
	// others' bookkeeping. A plain WaitGroup tracks "all three recorded"
	// instead, since these jobs never park and so need no Counter at all.
	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(3)

	record := func(name string) JobFunc {
		return func(ctx *Context, data any) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			wg.Done()
		}
	}

	require.NoError(t, s.AddJob(NewJob(record("low"), nil), nil, Low))
	require.NoError(t, s.AddJob(NewJob(record("normal"), nil), nil, Normal))
	require.NoError(t, s.AddJob(NewJob(record("high"), nil), nil, High))

	close(gate)
	s.Wait(gateDone, 0)
	wg.Wait()

	require.Len(t, order, 3)
	assert.Equal(t, "high", order[0])
}

func TestSchedulerWaitFairnessManyJobsOneCounter(t *testing.T) {
	s := newTestScheduler(t, 4)
	c := NewCounter()

	const n = 256
	var completed int32
	jobs := make([]Job, n)
	for i := 0; i < n; i++ {
		jobs[i] = NewJob(func(ctx *Context, data any) {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&completed, 1)
		}, nil)
	}

	require.NoError(t, s.AddJobs(jobs, c, Normal))
	s.Wait(c, 0)

	assert.EqualValues(t, n, atomic.LoadInt32(&completed))
}

func TestSchedulerAddJobNullCallbackIsError(t *testing.T) {
	s := newTestScheduler(t, 1)
	var job Job
	err := s.AddJob(job, nil, Normal)
	assert.ErrorIs(t, err, ErrNullCallback)
}
