//go:build linux
// +build linux

package main

import (
	"fmt"
	"runtime"
	"time"
)

// Loop timing
const (
	defaultDelay = 50 * time.Millisecond    // Spacing between toggles
	defaultPulse = 513313 * time.Nanosecond // Width of the asserted pulse
	maxPulse     = 4 * time.Second          // Samples are uint32 ns and wrap at ~4.295s
)

// MeasureConfig is the part of the run configuration the measurement thread
// needs.
type MeasureConfig struct {
	CPU      int // Negative: no affinity
	Priority int // Negative: policy minimum
	Delay    time.Duration
	Pulse    time.Duration
}

// Result is what the measurement thread hands back to its caller.
type Result struct {
	Samples   []uint32
	Completed int   // Iterations whose sample was stored
	Priority  int   // Priority actually applied; negative if setup failed
	Err       error // Why the run stopped early, if it did
}

// Partial reports whether fewer samples were stored than requested. Entries
// from Completed onwards hold whatever the buffer held before.
func (r Result) Partial() bool {
	return r.Completed < len(r.Samples)
}

// Measurer runs the toggle/measure loop on a dedicated real-time thread.
type Measurer struct {
	cfg   MeasureConfig
	line  *Line
	clock Clock
	sched Scheduler
}

// NewMeasurer returns a Measurer driving line and timing with clock.
func NewMeasurer(cfg MeasureConfig, line *Line, clock Clock, sched Scheduler) *Measurer {
	return &Measurer{
		cfg:   cfg,
		line:  line,
		clock: clock,
		sched: sched,
	}
}

// Start launches the measurement thread, which fills samples and then
// delivers its Result on the returned channel. The caller must not touch
// samples or the line until the Result arrives.
func (m *Measurer) Start(samples []uint32) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		// The thread keeps its RT policy and affinity, so it is never handed
		// back to the runtime; it exits with the goroutine.
		runtime.LockOSThread()
		done <- m.run(samples)
	}()
	return done
}

// Run measures on a new thread and waits for it.
func (m *Measurer) Run(samples []uint32) Result {
	return <-m.Start(samples)
}

func (m *Measurer) run(samples []uint32) Result {
	res := Result{Samples: samples}

	prio, err := m.setup()
	res.Priority = prio
	if err != nil {
		res.Err = err
		return res
	}

	res.Completed, res.Err = m.loop(samples)
	return res
}

// setup pins the thread and applies the real-time policy.
func (m *Measurer) setup() (int, error) {
	if m.cfg.CPU >= 0 {
		if err := m.sched.SetAffinity(m.cfg.CPU); err != nil {
			return -1, fmt.Errorf("set CPU affinity to %d: %w", m.cfg.CPU, err)
		}
	}

	min, max, err := m.sched.PriorityRange(schedPolicy)
	if err != nil {
		return -1, fmt.Errorf("query priority range: %w", err)
	}
	prio := resolvePriority(m.cfg.Priority, min, max)
	if err := m.sched.SetPolicy(schedPolicy, prio); err != nil {
		return -1, fmt.Errorf("set SCHED_FIFO priority %d: %w", prio, err)
	}
	return prio, nil
}

// loop stores one sample per iteration and returns how many it stored. The
// line is left low on every return path.
func (m *Measurer) loop(samples []uint32) (int, error) {
	m.line.Set(false)
	for i := range samples {
		if err := m.clock.Sleep(m.cfg.Delay); err != nil {
			return i, fmt.Errorf("iteration %d: delay: %w", i, err)
		}

		m.line.Set(true)
		t0, err := m.clock.Now()
		if err != nil {
			m.line.Set(false)
			return i, fmt.Errorf("iteration %d: read clock: %w", i, err)
		}
		if err := m.clock.Sleep(m.cfg.Pulse); err != nil {
			m.line.Set(false)
			return i, fmt.Errorf("iteration %d: pulse: %w", i, err)
		}
		m.line.Set(false)

		t1, err := m.clock.Now()
		if err != nil {
			return i, fmt.Errorf("iteration %d: read clock: %w", i, err)
		}
		samples[i] = Sample(t0, t1)
	}
	return len(samples), nil
}
