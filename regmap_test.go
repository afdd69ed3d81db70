//go:build linux
// +build linux

package main

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeMem creates a file standing in for /dev/mem and points memDevice at
// it for the duration of the test. Physical addresses become file offsets.
func fakeMem(t *testing.T, size int64, init map[int64]uint32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem")
	buf := make([]byte, size)
	for off, v := range init {
		binary.NativeEndian.PutUint32(buf[off:], v)
	}
	if err := os.WriteFile(path, buf, 0600); err != nil {
		t.Fatalf("write fake mem: %v", err)
	}

	old := memDevice
	memDevice = path
	t.Cleanup(func() { memDevice = old })
	return path
}

func readWord(t *testing.T, path string, off int64) uint32 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fake mem: %v", err)
	}
	return binary.NativeEndian.Uint32(data[off:])
}

// testPlatform lays the two windows out in the first pages of the fake device.
func testPlatform() Platform {
	page := int64(os.Getpagesize())
	return Platform{
		Name:       "test",
		PinmuxBase: 0,
		PinmuxReg:  0x7A8,
		PinmuxMask: 0xFF,
		GPIOBase:   2 * page,
		DataReg:    0x44,
		Pin:        42,
		BankWidth:  32,
	}
}

func TestOpenHardwareSelectsGPIOFunction(t *testing.T) {
	p := testPlatform()
	page := int64(os.Getpagesize())
	path := fakeMem(t, 3*page, map[int64]uint32{
		p.PinmuxReg: 0xDEADBEEF,
	})

	hw, err := OpenHardware(p)
	if err != nil {
		t.Fatalf("OpenHardware failed: %v", err)
	}
	if err := hw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := readWord(t, path, p.PinmuxReg); got != 0xDEADBE00 {
		t.Errorf("pin-mux register: got %#x, want %#x", got, 0xDEADBE00)
	}
}

func TestHardwareLineWritesBank(t *testing.T) {
	p := testPlatform()
	page := int64(os.Getpagesize())
	dataAddr := p.GPIOBase + p.DataReg
	path := fakeMem(t, 3*page, map[int64]uint32{
		dataAddr: 0x12345078,
	})

	hw, err := OpenHardware(p)
	if err != nil {
		t.Fatalf("OpenHardware failed: %v", err)
	}
	defer hw.Close()

	line := hw.Line()
	if prev := line.Set(true); prev != 0x12345078 {
		t.Errorf("previous value: got %#x, want %#x", prev, 0x12345078)
	}
	if got := readWord(t, path, dataAddr); got != 0x12345478 {
		t.Errorf("after set high: got %#x, want %#x", got, 0x12345478)
	}
	line.Set(false)
	if got := readWord(t, path, dataAddr); got != 0x12345078 {
		t.Errorf("after set low: got %#x, want %#x", got, 0x12345078)
	}
}

func TestOpenHardwareMissingDevice(t *testing.T) {
	old := memDevice
	memDevice = filepath.Join(t.TempDir(), "no-such-mem")
	defer func() { memDevice = old }()

	hw, err := OpenHardware(testPlatform())
	if err == nil {
		hw.Close()
		t.Fatal("expected error for missing device")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if n := strings.Count(err.Error(), memDevice); n != 1 {
		t.Errorf("device path appears %d times in %q, want once", n, err)
	}
}

func TestHardwareCloseReportsError(t *testing.T) {
	page := int64(os.Getpagesize())
	fakeMem(t, 3*page, nil)

	hw, err := OpenHardware(testPlatform())
	if err != nil {
		t.Fatalf("OpenHardware failed: %v", err)
	}
	hw.dev.Close()

	if err := hw.Close(); err == nil {
		t.Error("expected error closing an already closed device")
	}
	if err := hw.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenHardwareRejectsBadPlatform(t *testing.T) {
	p := testPlatform()
	p.DataReg = 0x46
	if _, err := OpenHardware(p); err == nil {
		t.Fatal("expected error for misaligned register offset")
	}
}

func TestMappingOffsetWithinPage(t *testing.T) {
	page := int64(os.Getpagesize())
	path := fakeMem(t, 2*page, map[int64]uint32{
		page + 0x10: 0xCAFEF00D,
	})
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	// Window starting mid-page: offsets are relative to the window.
	m, err := mapRegion(int(f.Fd()), page+0x8, 0x10)
	if err != nil {
		t.Fatalf("mapRegion failed: %v", err)
	}
	defer m.unmap()

	if got := m.Read32(0x8); got != 0xCAFEF00D {
		t.Errorf("Read32: got %#x, want %#x", got, 0xCAFEF00D)
	}
}
