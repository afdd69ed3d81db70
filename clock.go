//go:build linux
// +build linux

package main

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Clock is the time source of the measurement loop. Now and Sleep must use
// the same underlying clock.
type Clock interface {
	Now() (unix.Timespec, error)
	Sleep(d time.Duration) error
}

// monotonicClock reads and sleeps on CLOCK_MONOTONIC.
type monotonicClock struct{}

func (monotonicClock) Now() (unix.Timespec, error) {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return ts, err
}

// Sleep blocks the calling thread for d. It sleeps until an absolute
// deadline so that signal interruptions (the Go runtime preempts threads
// with SIGURG) resume without drifting.
func (c monotonicClock) Sleep(d time.Duration) error {
	now, err := c.Now()
	if err != nil {
		return err
	}
	deadline := unix.NsecToTimespec(now.Nano() + int64(d))
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &deadline, nil)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// Elapsed returns end-start in nanoseconds.
func Elapsed(start, end unix.Timespec) int64 {
	return end.Nano() - start.Nano()
}

// Sample narrows the interval between start and end to the stored width.
// Intervals of 2^32 ns (~4.295s) or more wrap.
func Sample(start, end unix.Timespec) uint32 {
	return uint32(Elapsed(start, end))
}
