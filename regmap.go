//go:build linux
// +build linux

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// memDevice is the privileged physical-memory device.
var memDevice = "/dev/mem"

// Registers is 32-bit access to a register window by byte offset.
type Registers interface {
	Read32(off int64) uint32
	Write32(off int64, v uint32)
}

// mapping is a page-aligned view of a physical address range.
type mapping struct {
	mem   []byte
	delta int64 // Offset of the requested address within mem
}

// mapRegion maps the pages covering [addr, addr+span) of the device behind fd.
func mapRegion(fd int, addr, span int64) (*mapping, error) {
	pageSize := int64(os.Getpagesize())
	base := addr &^ (pageSize - 1)
	delta := addr - base
	length := (delta + span + pageSize - 1) &^ (pageSize - 1)

	mem, err := unix.Mmap(fd, base, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mapping{mem: mem, delta: delta}, nil
}

func (m *mapping) reg(off int64) *uint32 {
	i := m.delta + off
	if i < 0 || i+4 > int64(len(m.mem)) {
		panic(fmt.Sprintf("register offset %#x outside mapped window", off))
	}
	return (*uint32)(unsafe.Pointer(&m.mem[i]))
}

// Read32 loads the register at off. Atomic access keeps the compiler from
// caching or eliding it.
func (m *mapping) Read32(off int64) uint32 {
	return atomic.LoadUint32(m.reg(off))
}

// Write32 stores v to the register at off.
func (m *mapping) Write32(off int64, v uint32) {
	atomic.StoreUint32(m.reg(off), v)
}

func (m *mapping) unmap() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}

// HardwareMap owns the physical-memory device and the GPIO bank mapping.
type HardwareMap struct {
	platform Platform
	dev      *os.File
	gpio     *mapping
}

// OpenHardware routes the platform's probe pin to GPIO and maps its bank.
// The pin-mux window is only mapped for the reconfiguration; the GPIO window
// stays mapped until Close.
func OpenHardware(p Platform) (*HardwareMap, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	dev, err := os.OpenFile(memDevice, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open physical memory: %w", err)
	}
	fd := int(dev.Fd())

	pinmux, err := mapRegion(fd, p.PinmuxBase, p.PinmuxReg+4)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("map pin-mux window %#x: %w", p.PinmuxBase, err)
	}
	selectGPIO(pinmux, p.PinmuxReg, p.PinmuxMask)
	if err := pinmux.unmap(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("unmap pin-mux window %#x: %w", p.PinmuxBase, err)
	}

	gpio, err := mapRegion(fd, p.GPIOBase, p.DataReg+4)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("map GPIO window %#x: %w", p.GPIOBase, err)
	}

	return &HardwareMap{
		platform: p,
		dev:      dev,
		gpio:     gpio,
	}, nil
}

// selectGPIO clears the pin-mux field, leaving the rest of the register alone.
func selectGPIO(r Registers, off int64, field uint32) {
	r.Write32(off, r.Read32(off)&^field)
}

// Line returns the probe pin's output control.
func (h *HardwareMap) Line() *Line {
	return NewLine(h.gpio, h.platform.DataReg, h.platform.PinConfig())
}

// Close unmaps the GPIO window and closes the device.
func (h *HardwareMap) Close() error {
	var firstErr error
	if h.gpio != nil {
		if err := h.gpio.unmap(); err != nil {
			firstErr = fmt.Errorf("unmap GPIO window: %w", err)
		}
		h.gpio = nil
	}
	if h.dev != nil {
		if err := h.dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		h.dev = nil
	}
	return firstErr
}
