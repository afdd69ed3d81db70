//go:build linux
// +build linux

package main

// Line drives one output pin through its bank data register.
type Line struct {
	regs Registers
	reg  int64
	pin  PinConfig
}

// NewLine returns the control for pin, whose bank data register is at reg.
func NewLine(regs Registers, reg int64, pin PinConfig) *Line {
	return &Line{regs: regs, reg: reg, pin: pin}
}

// Set drives the pin high (true) or low (false) and returns the register
// value read before the write. The register is re-read on every call since
// other pins in the bank may change underneath us.
func (l *Line) Set(state bool) uint32 {
	prev := l.regs.Read32(l.reg)
	if state {
		l.regs.Write32(l.reg, prev|l.pin.Mask)
	} else {
		l.regs.Write32(l.reg, prev&^l.pin.Mask)
	}
	return prev
}
