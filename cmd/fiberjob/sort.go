package main

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"fiberjob/sched"
)

// sortPartCount bounds the parallel fanout of mergeSort, the same way
// original_source's main.cpp fixes PartCount=16: recursion stops dividing
// once a part's share of the tree reaches 1, at which point the part is
// sorted in place on the current fiber instead of fanning out further. This
// keeps the number of simultaneously parked fibers bounded by the part
// count (at most partCount-1), independent of how many ints are being
// sorted — an unbounded halve-until-len<=1 recursion would instead park one
// fiber per internal tree node, exhausting the fiber pool on any
// sufficiently large input.
const sortPartCount = 16

type sortTask struct {
	partCount int
	buf       []int
}

// mergeSort is a divide-and-conquer job: while its part count is still
// above 1 it fans into two child jobs and parks on its own counter until
// they complete (exercising the scheduler's fiber-parking path, ctx.Wait),
// halving the part count at each level; once a part reaches count 1 it
// sorts directly and returns without fanning out further.
func mergeSort(ctx *sched.Context, data any) {
	task := data.(*sortTask)
	if task.partCount <= 1 || len(task.buf) <= 1 {
		sort.Ints(task.buf)
		return
	}

	mid := len(task.buf) / 2
	leftCount := task.partCount / 2
	rightCount := task.partCount - leftCount

	left := &sortTask{partCount: leftCount, buf: task.buf[:mid]}
	right := &sortTask{partCount: rightCount, buf: task.buf[mid:]}

	counter := sched.NewCounter()
	jobs := []sched.Job{
		sched.NewJob(mergeSort, left),
		sched.NewJob(mergeSort, right),
	}
	if err := ctx.Scheduler.AddJobs(jobs, counter, sched.Normal); err != nil {
		panic(err)
	}
	if err := ctx.Wait(counter, 0); err != nil {
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

func newSortCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Recursively merge-sort a random slice of N ints across the fiber pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newScheduler()
			if err := s.Initialize(); err != nil {
				return err
			}
			defer s.Shutdown(true)

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			data := make([]int, n)
			for i := range data {
				data[i] = rng.Intn(1_000_000)
			}

			counter := sched.NewCounter()
			start := time.Now()
			task := &sortTask{partCount: sortPartCount, buf: data}
			if err := s.AddJob(sched.NewJob(mergeSort, task), counter, sched.Normal); err != nil {
				return err
			}
			s.Wait(counter, 0)
			elapsed := time.Since(start)

			ok := sort.IntsAreSorted(data)
			fmt.Printf("sorted %d ints in %s, sorted=%t\n", n, elapsed, ok)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 4096, "number of ints to sort")
	return cmd
}
