//go:build linux
// +build linux

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// schedPolicy is the fixed-priority, non-time-sliced class used for the
// measurement thread.
const schedPolicy = unix.SCHED_FIFO

// Scheduler applies CPU placement and scheduling class to the calling thread.
type Scheduler interface {
	SetAffinity(cpu int) error
	PriorityRange(policy int) (min, max int, err error)
	SetPolicy(policy, priority int) error
}

// threadScheduler talks to the kernel for the calling OS thread (pid 0).
type threadScheduler struct{}

func (threadScheduler) SetAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if set.Count() != 1 {
		return fmt.Errorf("cpu %d out of range", cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}

func (threadScheduler) PriorityRange(policy int) (int, int, error) {
	lo, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MIN, uintptr(policy), 0, 0)
	if errno != 0 {
		return 0, 0, errno
	}
	hi, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(policy), 0, 0)
	if errno != 0 {
		return 0, 0, errno
	}
	return int(lo), int(hi), nil
}

func (threadScheduler) SetPolicy(policy, priority int) error {
	attr := unix.SchedAttr{
		Policy:   uint32(policy),
		Priority: uint32(priority),
	}
	return unix.SchedSetAttr(0, &attr, 0)
}

// resolvePriority picks the priority to apply: the policy minimum when none
// was requested (negative), otherwise the request clamped to [min, max].
func resolvePriority(requested, min, max int) int {
	switch {
	case requested < 0:
		return min
	case requested > max:
		return max
	case requested < min:
		return min
	}
	return requested
}
