//go:build linux
// +build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

var version = "0.2.0"

const (
	defaultOutput = "test.dat"
	maxLoops      = 1 << 24 // ~9.7 days at the default delay
)

// Config holds all command-line configuration. It is built once by
// parseFlags and only read afterwards.
type Config struct {
	// Measurement thread
	CPU      int // -1: no affinity
	Priority int // -1: policy minimum
	Loops    int

	// Timing
	Delay time.Duration
	Pulse time.Duration

	// Hardware and output
	Platform Platform
	Output   string

	// Misc
	Help          bool
	Version       bool
	ListPlatforms bool

	// Load command to co-run during the measurement
	Load []string
}

func (c Config) measureConfig() MeasureConfig {
	return MeasureConfig{
		CPU:      c.CPU,
		Priority: c.Priority,
		Delay:    c.Delay,
		Pulse:    c.Pulse,
	}
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// Help is not a successful run.
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("clock-validation %s\n", version)
		os.Exit(0)
	}

	if cfg.ListPlatforms {
		printPlatforms()
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

func parseFlags(args []string) (Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet("clock-validation", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false

	fs.IntVarP(&cfg.CPU, "affinity", "a", -1, "Run the measurement thread on processor <cpu>")
	fs.IntVarP(&cfg.Priority, "priority", "p", -1, "SCHED_FIFO priority (clamped to the policy range; default policy minimum)")
	fs.IntVarP(&cfg.Loops, "loops", "l", 0, "Number of measurement iterations (required)")
	fs.StringVarP(&cfg.Output, "output", "o", defaultOutput, "Sample file to write")
	platform := fs.String("platform", defaultPlatform, "Board descriptor (see --list-platforms)")
	delay := fs.String("delay", defaultDelay.String(), "Pause before each toggle")
	pulse := fs.String("pulse", defaultPulse.String(), "Sleep between asserting and releasing the pin")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show help")
	fs.BoolVarP(&cfg.Version, "version", "v", false, "Show version")
	fs.BoolVarP(&cfg.ListPlatforms, "list-platforms", "L", false, "List available board descriptors")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "clock-validation - measure real-time wake-up latency against a GPIO edge")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Toggles a GPIO pin from a SCHED_FIFO thread and records, per toggle, the")
		fmt.Fprintln(os.Stderr, "CLOCK_MONOTONIC time between raising the pin and finishing the iteration.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: clock-validation [flags] [-- <load command> [args...]]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  clock-validation --loops=1000 --priority=80 --affinity=1")
		fmt.Fprintln(os.Stderr, "  clock-validation -l 1000 -p 99 -- timer_stress --threads 8")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Samples are written as raw native-endian uint32 nanoseconds, one per loop.")
	}

	if err := fs.Parse(args); err != nil {
		fs.Usage()
		return Config{}, err
	}

	cfg.Load = fs.Args()

	if cfg.Help {
		fs.Usage()
		return Config{}, flag.ErrHelp
	}

	// Informational modes need nothing else.
	if cfg.Version || cfg.ListPlatforms {
		return cfg, nil
	}

	if err := validateFlags(fs, &cfg, *platform, *delay, *pulse); err != nil {
		fs.Usage()
		return Config{}, err
	}
	return cfg, nil
}

// validateFlags checks the parsed values and fills in the platform and
// durations.
func validateFlags(fs *flag.FlagSet, cfg *Config, platform, delay, pulse string) error {
	if cfg.Loops <= 0 {
		return fmt.Errorf("--loops must be greater than 0")
	}
	if cfg.Loops > maxLoops {
		return fmt.Errorf("--loops %d exceeds the maximum of %d", cfg.Loops, maxLoops)
	}
	if fs.Changed("affinity") && cfg.CPU < 0 {
		return fmt.Errorf("invalid --affinity: %d", cfg.CPU)
	}
	if cfg.Output == "" {
		return fmt.Errorf("invalid --output: empty path")
	}

	p, err := lookupPlatform(platform)
	if err != nil {
		return err
	}
	cfg.Platform = p

	for _, d := range []struct {
		value    string
		flagName string
		dst      *time.Duration
	}{
		{delay, "delay", &cfg.Delay},
		{pulse, "pulse", &cfg.Pulse},
	} {
		if err := parseDuration(d.value, d.flagName, d.dst); err != nil {
			return err
		}
	}
	if cfg.Delay < 0 {
		return fmt.Errorf("invalid --delay: %v is negative", cfg.Delay)
	}
	if cfg.Pulse <= 0 || cfg.Pulse >= maxPulse {
		return fmt.Errorf("invalid --pulse: %v must be in (0, %v)", cfg.Pulse, maxPulse)
	}
	return nil
}

// parseDuration parses a duration flag value into dst if non-empty.
// Returns an error with the flag name if parsing fails.
func parseDuration(s string, flagName string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	*dst = d
	return nil
}

// run performs one measurement and writes the samples. It returns the
// process exit code.
func run(cfg Config) int {
	samples := make([]uint32, cfg.Loops)

	hw, err := OpenHardware(cfg.Platform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := hw.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}()

	// Fault in and pin the sample buffer so the loop never takes a page fault.
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		fmt.Fprintf(os.Stderr, "warning: mlockall: %v\n", err)
	}

	var load *loadProcess
	if len(cfg.Load) > 0 {
		load, err = startLoad(cfg.Load)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	m := NewMeasurer(cfg.measureConfig(), hw.Line(), monotonicClock{}, threadScheduler{})
	res := m.Run(samples)

	if load != nil {
		if err := load.stop(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	if note := priorityNote(cfg.Priority, res); note != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", note)
	}

	return finish(cfg, res)
}

// priorityNote describes a requested priority the scheduler could not honour
// as given. It is empty when nothing was requested or it was applied as is.
func priorityNote(requested int, res Result) string {
	if requested < 0 || res.Priority < 0 || res.Priority == requested {
		return ""
	}
	return fmt.Sprintf("--priority %d clamped to %d", requested, res.Priority)
}

// finish writes whatever the measurement stored and maps the outcome to an
// exit code. A partial run keeps its completed prefix but still fails.
func finish(cfg Config, res Result) int {
	if res.Completed > 0 {
		if err := WriteSamples(cfg.Output, res.Samples[:res.Completed]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	if res.Partial() {
		fmt.Fprintf(os.Stderr, "error: measurement stopped after %d of %d loops: %v\n",
			res.Completed, len(res.Samples), res.Err)
		return 1
	}
	return 0
}
