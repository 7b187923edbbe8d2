//go:build linux

package sched

import "golang.org/x/sys/unix"

// setAffinity pins the calling OS thread to a single CPU. The caller must
// already have called runtime.LockOSThread.
func setAffinity(cpuIndex int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuIndex % numCPU())
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return ErrAffinityFailure
	}
	return nil
}
