// Command fiberjob is a small demo harness over package sched: it drives
// the fiber-based job scheduler through a few end-to-end scenarios useful
// for eyeballing behavior and rough throughput, not a production service.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fiberjob/sched"
)

var (
	threadCount int
	fiberCount  int
	verbose     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fiberjob",
		Short: "Run demo workloads against the fiber job scheduler",
	}
	root.PersistentFlags().IntVar(&threadCount, "threads", 0, "worker thread count (0 = runtime.NumCPU())")
	root.PersistentFlags().IntVar(&fiberCount, "fibers", 160, "fiber pool size")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd(), newSortCmd(), newBenchCmd())
	return root
}

func newScheduler(extra ...sched.Option) *sched.Scheduler {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	opts := []sched.Option{sched.WithFiberCount(fiberCount), sched.WithLogger(logger)}
	if threadCount > 0 {
		opts = append(opts, sched.WithThreadCount(threadCount))
	}
	opts = append(opts, extra...)
	return sched.New(opts...)
}
