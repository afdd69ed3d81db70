//go:build linux
// +build linux

package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const sampleSize = 4 // bytes per stored sample

// countingWriter counts bytes that reach the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteSamples replaces path with the raw native-endian samples, in order
// and without a header. A short write that reports no error is treated as a
// broken invariant and panics.
func WriteSamples(path string, samples []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := &countingWriter{w: f}
	bw := bufio.NewWriter(cw)
	if err := binary.Write(bw, binary.NativeEndian, samples); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if want := int64(len(samples)) * sampleSize; cw.n != want {
		panic(fmt.Sprintf("wrote %d bytes of samples to %s, want %d", cw.n, path, want))
	}
	return f.Close()
}

// ReadSamples loads a file written by WriteSamples.
func ReadSamples(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%sampleSize != 0 {
		return nil, fmt.Errorf("%s: length %d is not a multiple of %d", path, len(data), sampleSize)
	}
	samples := make([]uint32, len(data)/sampleSize)
	for i := range samples {
		samples[i] = binary.NativeEndian.Uint32(data[i*sampleSize:])
	}
	return samples, nil
}
