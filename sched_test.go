//go:build linux
// +build linux

package main

import (
	"runtime"
	"testing"

	"golang.org/x/sys/unix"
)

// onLockedThread runs f on a fresh OS thread that is discarded afterwards,
// so attributes set by f do not leak into other tests.
func onLockedThread(f func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		f()
	}()
	<-done
}

func TestThreadSchedulerAffinitySingleCore(t *testing.T) {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		t.Fatalf("SchedGetaffinity: %v", err)
	}
	cpu := -1
	for i := 0; i < 1024; i++ {
		if allowed.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no CPU in affinity mask")
	}

	var got unix.CPUSet
	var setErr, getErr error
	onLockedThread(func() {
		setErr = threadScheduler{}.SetAffinity(cpu)
		getErr = unix.SchedGetaffinity(0, &got)
	})

	if setErr != nil {
		t.Fatalf("SetAffinity(%d): %v", cpu, setErr)
	}
	if getErr != nil {
		t.Fatalf("SchedGetaffinity: %v", getErr)
	}
	if got.Count() != 1 || !got.IsSet(cpu) {
		t.Errorf("affinity: got %d CPUs (cpu %d set=%v), want exactly cpu %d", got.Count(), cpu, got.IsSet(cpu), cpu)
	}
}

func TestThreadSchedulerAffinityOutOfRange(t *testing.T) {
	var err error
	onLockedThread(func() {
		err = threadScheduler{}.SetAffinity(1 << 20)
	})
	if err == nil {
		t.Fatal("expected error for CPU outside the set")
	}
}

func TestThreadSchedulerPriorityRange(t *testing.T) {
	min, max, err := threadScheduler{}.PriorityRange(schedPolicy)
	if err != nil {
		t.Fatalf("PriorityRange: %v", err)
	}
	if min < 1 || max < min {
		t.Errorf("SCHED_FIFO range: got [%d, %d]", min, max)
	}
}

func TestThreadSchedulerSetPolicy(t *testing.T) {
	var applied *unix.SchedAttr
	var setErr, getErr error
	onLockedThread(func() {
		setErr = threadScheduler{}.SetPolicy(schedPolicy, 1)
		if setErr == nil {
			applied, getErr = unix.SchedGetAttr(0, 0)
		}
	})

	if setErr == unix.EPERM {
		t.Skip("SCHED_FIFO needs CAP_SYS_NICE")
	}
	if setErr != nil {
		t.Fatalf("SetPolicy: %v", setErr)
	}
	if getErr != nil {
		t.Fatalf("SchedGetAttr: %v", getErr)
	}
	if applied.Policy != schedPolicy || applied.Priority != 1 {
		t.Errorf("applied: policy %d priority %d, want %d/1", applied.Policy, applied.Priority, schedPolicy)
	}
}
