//go:build linux
// +build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Default terminal dimensions when stdin is not a TTY
const (
	defaultTermCols = 80
	defaultTermRows = 24
)

// loadStopWait bounds how long a load command gets to exit after SIGTERM
// before its process group is killed.
const loadStopWait = 2 * time.Second

// loadProcess is a co-running load command (e.g. timer_stress) that keeps
// the scheduler busy while samples are taken.
type loadProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// getTerminalSize returns the terminal dimensions, or defaults if unavailable.
func getTerminalSize() (width, height int) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		w, h, err := term.GetSize(int(os.Stdin.Fd()))
		if err == nil {
			return w, h
		}
	}
	return defaultTermCols, defaultTermRows
}

// startLoad runs args in a new session on a PTY. The session gives the load
// its own process group, so stopping it reaches every thread and child it
// spawned. Its output is discarded.
func startLoad(args []string) (*loadProcess, error) {
	cmd := exec.Command(args[0], args[1:]...)

	width, height := getTerminalSize()
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(height),
		Cols: uint16(width),
	})
	if err != nil {
		return nil, fmt.Errorf("start load command %s: %w", args[0], err)
	}

	// Drain output so the load never blocks on a full PTY buffer. The copy
	// ends when the PTY is closed in stop.
	go io.Copy(io.Discard, ptmx)

	return &loadProcess{cmd: cmd, ptmx: ptmx}, nil
}

// stop terminates the load's process group and reaps it. Dying from the
// signal sent here is not an error; exiting on its own with a failure is.
func (l *loadProcess) stop() error {
	pid := l.cmd.Process.Pid
	syscall.Kill(-pid, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- l.cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(loadStopWait):
		syscall.Kill(-pid, syscall.SIGKILL)
		err = <-done
	}
	l.ptmx.Close()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return nil
		}
		return fmt.Errorf("load command %s: %w", l.cmd.Path, err)
	}
	return err
}
