//go:build linux
// +build linux

package main

import (
	"testing"
	"time"
)

func TestLoadRunsOnTerminal(t *testing.T) {
	// Exits 3 unless stdin is a terminal; otherwise waits to be stopped.
	l, err := startLoad([]string{"sh", "-c", "test -t 0 || exit 3; exec sleep 30"})
	if err != nil {
		t.Fatalf("startLoad failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := l.stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > loadStopWait {
		t.Errorf("stop took %v, SIGTERM should end sleep immediately", elapsed)
	}
}

func TestLoadStopsWholeProcessGroup(t *testing.T) {
	// The shell and its child both ignore SIGTERM, so only the SIGKILL sent
	// to the group after loadStopWait ends them.
	l, err := startLoad([]string{"sh", "-c", "trap '' TERM; sleep 30 & wait"})
	if err != nil {
		t.Fatalf("startLoad failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := l.stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > loadStopWait+2*time.Second {
		t.Errorf("stop took %v", elapsed)
	}
}

func TestLoadFailureReported(t *testing.T) {
	l, err := startLoad([]string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("startLoad failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := l.stop(); err == nil {
		t.Fatal("expected error from load that exited with status 3")
	}
}

func TestLoadMissingCommand(t *testing.T) {
	if _, err := startLoad([]string{"/nonexistent/load-command"}); err == nil {
		t.Fatal("expected error for missing load command")
	}
}
