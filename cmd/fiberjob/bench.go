package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"fiberjob/sched"
)

// newBenchCmd demonstrates priority ordering: it floods the Low queue, then
// submits a small batch of High jobs and reports how much of the flood had
// run by the time they drained — High must always be serviced first on a
// given worker iteration.
func newBenchCmd() *cobra.Command {
	var flood, urgent int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Flood the low queue, then measure how fast a High batch drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The Low queue must hold the whole flood: AddJobs pushes
			// synchronously and returns ErrQueueFull the instant it doesn't
			// fit, so a flood larger than the default capacity (4096) would
			// make this command's success depend on how fast workers happen
			// to drain concurrently. Size Low to the requested flood
			// instead of relying on the scheduler's general-purpose default.
			lowQueueSize := flood
			if lowQueueSize < 4096 {
				lowQueueSize = 4096
			}
			s := newScheduler(sched.WithQueueSizes(1024, 2048, lowQueueSize))
			if err := s.Initialize(); err != nil {
				return err
			}
			defer s.Shutdown(true)

			var floodRan, urgentRan int64
			floodCounter := sched.NewCounter()
			floodJobs := make([]sched.Job, flood)
			for i := range floodJobs {
				floodJobs[i] = sched.NewJob(func(ctx *sched.Context, data any) {
					atomic.AddInt64(&floodRan, 1)
				}, nil)
			}
			if err := s.AddJobs(floodJobs, floodCounter, sched.Low); err != nil {
				return err
			}

			urgentCounter := sched.NewCounter()
			urgentJobs := make([]sched.Job, urgent)
			for i := range urgentJobs {
				urgentJobs[i] = sched.NewJob(func(ctx *sched.Context, data any) {
					atomic.AddInt64(&urgentRan, 1)
				}, nil)
			}
			if err := s.AddJobs(urgentJobs, urgentCounter, sched.High); err != nil {
				return err
			}

			s.Wait(urgentCounter, 0)
			fmt.Printf("high-priority batch of %d drained while %d/%d low-priority jobs had run\n",
				urgent, atomic.LoadInt64(&floodRan), flood)

			s.Wait(floodCounter, 0)
			return nil
		},
	}
	cmd.Flags().IntVar(&flood, "flood", 20000, "number of low-priority jobs to flood the queue with")
	cmd.Flags().IntVar(&urgent, "urgent", 16, "number of high-priority jobs submitted after the flood")
	return cmd
}
