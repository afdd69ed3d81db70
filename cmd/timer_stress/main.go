//go:build linux
// +build linux

// timer_stress loads the scheduler with short random timer sleeps on a pool
// of threads until interrupted. Run it next to clock-validation, or hand it
// over as its load command.
// Usage: go run ./cmd/timer_stress --threads 8
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const (
	maxSleep       = time.Millisecond // Upper bound of each random sleep
	pollInterval   = time.Millisecond // Main thread wake-up while waiting for a signal
	statusInterval = 5 * time.Second
)

func main() {
	threads, err := parseFlags(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		fmt.Fprintf(os.Stderr, "warning: mlockall: %v\n", err)
	}

	signal.Ignore(syscall.SIGHUP)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sleeps atomic.Uint64
	var wg sync.WaitGroup
	seed := time.Now().UnixNano()
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()
			sleepRandomly(ctx, rng, &sleeps)
		}(rand.New(rand.NewSource(seed + int64(i))))
	}

	showStatus := term.IsTerminal(int(os.Stderr.Fd()))
	status := rate.Sometimes{Interval: statusInterval}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-ticker.C:
			if showStatus {
				status.Do(func() {
					fmt.Fprintf(os.Stderr, "\r%d threads, %d sleeps", threads, sleeps.Load())
				})
			}
		}
	}

	wg.Wait()
	if showStatus {
		fmt.Fprintf(os.Stderr, "\r%d threads, %d sleeps\n", threads, sleeps.Load())
	}
}

func parseFlags(args []string) (int, error) {
	fs := flag.NewFlagSet("timer_stress", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false

	threads := fs.IntP("threads", "t", 1, "Start <NUM> threads in parallel")
	help := fs.BoolP("help", "h", false, "Show help")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "timer_stress - generate scheduler load with random short sleeps")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: timer_stress [flags]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fs.Usage()
		return 0, err
	}
	if *help {
		fs.Usage()
		return 0, flag.ErrHelp
	}
	if *threads <= 0 {
		return 0, fmt.Errorf("invalid --threads: %d", *threads)
	}
	return *threads, nil
}

// sleepRandomly issues sleeps of random length in [0, maxSleep) on
// CLOCK_REALTIME from its own OS thread until ctx is done.
func sleepRandomly(ctx context.Context, rng *rand.Rand, count *atomic.Uint64) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for ctx.Err() == nil {
		ts := unix.NsecToTimespec(rng.Int63n(int64(maxSleep)))
		// An interrupted sleep is as good as a completed one here.
		unix.ClockNanosleep(unix.CLOCK_REALTIME, 0, &ts, nil)
		count.Add(1)
	}
}
