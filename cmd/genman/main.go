//go:build ignore

// genman generates the clock-validation man page.
// Usage: go run cmd/genman/main.go > clock-validation.1
package main

import (
	"fmt"
	"os"
)

func main() {
	// Use a fixed date for reproducible builds/CI
	date := "October 2026"

	manpage := fmt.Sprintf(`.TH CLOCK-VALIDATION 1 "%s" "clock-validation 0.2.0" "User Commands"
.SH NAME
clock-validation \- measure real-time wake-up latency against a GPIO edge
.SH SYNOPSIS
.B clock-validation
[\fIflags\fR] [\-\- \fIload-command\fR [\fIargs...\fR]]
.SH DESCRIPTION
.B clock-validation
starts one SCHED_FIFO thread that, for each loop, waits, drives a GPIO pin
high, sleeps for a short pulse, drives the pin low and records the
CLOCK_MONOTONIC time between raising the pin and finishing the loop.
.PP
The pin edges can be captured with an oscilloscope or logic analyzer and
compared with the recorded samples to check that the kernel clock and
scheduler behave as claimed, with or without competing load.
.PP
The GPIO bank is accessed directly through \fI/dev/mem\fR, so the program
must run as root.
.SH OPTIONS
.TP
.BR \-a ", " \-\-affinity " \fIcpu\fR"
Run the measurement thread on processor \fIcpu\fR only. Failing to set the
affinity aborts the run.
.TP
.BR \-p ", " \-\-priority " \fIprio\fR"
SCHED_FIFO priority. Values outside the policy range are clamped to it.
Without this flag the policy minimum is used.
.TP
.BR \-l ", " \-\-loops " \fIn\fR"
Number of loops (required, greater than 0).
.TP
.BR \-o ", " \-\-output " \fIpath\fR"
Sample file to write (default \fItest.dat\fR).
.TP
.B \-\-platform \fIname\fR
Board descriptor selecting the pin-mux register and GPIO bit
(default \fBzynq7000\fR).
.TP
.B \-\-delay \fIduration\fR
Pause before each toggle (default 50ms).
.TP
.B \-\-pulse \fIduration\fR
Sleep between raising and releasing the pin (default 513.313us). Must be
shorter than 4s.
.TP
.BR \-L ", " \-\-list\-platforms
List the built-in board descriptors.
.TP
.BR \-h ", " \-\-help
Show help message and exit with status 1.
.TP
.BR \-v ", " \-\-version
Show version information.
.SH LOAD COMMAND
Anything after \fB\-\-\fR is started in its own session on a pseudo-terminal
before the first loop and sent SIGTERM once the last loop is done. Its output
is discarded. \fBtimer_stress\fR is meant for this.
.SH OUTPUT
The sample file holds raw, headerless, native-endian unsigned 32-bit
nanosecond values, one per completed loop, in loop order.
.SH EXAMPLES
Ten loops at priority 50:
.PP
.RS
.nf
clock-validation \-\-loops=10 \-\-priority=50
.fi
.RE
.PP
Pinned to CPU 1 while eight threads hammer the timer subsystem:
.PP
.RS
.nf
clock-validation \-a 1 \-p 99 \-l 5000 \-\- timer_stress \-t 8
.fi
.RE
.SH EXIT STATUS
0 when every loop completed and the file was written. 1 on bad arguments,
help, hardware mapping or scheduling failures, or when the measurement
stopped early; in that case the completed loops are still written.
.SH NOTES
.IP \(bu 2
The pin-mux register is reprogrammed to route the pin to GPIO and is not
restored on exit.
.IP \(bu 2
There is no signal handling. Interrupting the program leaves the pin in
whatever state it was in.
.SH SEE ALSO
.BR sched_setattr (2),
.BR clock_nanosleep (2),
.BR mem (4)
`, date)

	fmt.Fprint(os.Stdout, manpage)
}
