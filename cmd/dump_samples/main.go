// dump_samples prints a clock-validation sample file as one nanosecond value
// per line, for feeding into plotting or analysis tools.
// Usage: go run ./cmd/dump_samples [test.dat]
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

func main() {
	path := "test.dat"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	if len(data)%4 != 0 {
		fmt.Fprintf(os.Stderr, "Error: %s is %d bytes, not a whole number of samples\n", path, len(data))
		os.Exit(1)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for off := 0; off < len(data); off += 4 {
		fmt.Fprintf(w, "%d\n", binary.NativeEndian.Uint32(data[off:]))
	}
}
