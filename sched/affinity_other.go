//go:build !linux

package sched

// setAffinity is a no-op off Linux: Go exposes no portable CPU-pinning
// syscall, and the platforms this package is built for in CI are all
// Linux. Worker threads still get runtime.LockOSThread, just not a fixed
// CPU; since this returns nil, nothing is logged about the missing pin.
func setAffinity(cpuIndex int) error {
	return nil
}
