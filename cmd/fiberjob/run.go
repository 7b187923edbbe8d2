package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"fiberjob/sched"
)

func newRunCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fan out N independent jobs summing into one counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newScheduler()
			if err := s.Initialize(); err != nil {
				return err
			}
			defer s.Shutdown(true)

			counter := sched.NewCounter()
			var sum int64
			jobs := make([]sched.Job, n)
			for i := 0; i < n; i++ {
				v := int64(i + 1)
				jobs[i] = sched.NewJob(func(ctx *sched.Context, data any) {
					atomic.AddInt64(&sum, v)
				}, nil)
			}

			start := time.Now()
			if err := s.AddJobs(jobs, counter, sched.Normal); err != nil {
				return err
			}
			s.Wait(counter, 0)
			elapsed := time.Since(start)

			fmt.Printf("ran %d jobs in %s, sum=%d\n", n, elapsed, atomic.LoadInt64(&sum))
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 1024, "number of jobs to fan out")
	return cmd
}
