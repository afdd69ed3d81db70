//go:build linux
// +build linux

package main

import (
	"fmt"
	"sort"
)

// Platform describes where the pin-mux field and the GPIO data bit of the
// probe pin live on one board. Addresses are physical.
type Platform struct {
	Name        string
	Description string

	PinmuxBase int64  // Pin-mux configuration window
	PinmuxReg  int64  // Offset of the pin's config register within the window
	PinmuxMask uint32 // Field cleared to route the pin to GPIO

	GPIOBase int64 // GPIO controller window
	DataReg  int64 // Offset of the bank data register within the window

	Pin       int // Probe pin number
	BankWidth int // Pins per bank
}

// PinConfig identifies the probe pin within its bank.
type PinConfig struct {
	Pin  int
	Bank int
	Mask uint32
}

// PinConfig derives the bank and bit mask of the probe pin.
func (p Platform) PinConfig() PinConfig {
	bank := p.Pin / p.BankWidth
	return PinConfig{
		Pin:  p.Pin,
		Bank: bank,
		Mask: 1 << uint(p.Pin-bank*p.BankWidth),
	}
}

// validate rejects descriptors that would map or address registers wrongly.
func (p Platform) validate() error {
	if p.BankWidth <= 0 || p.BankWidth > 32 {
		return fmt.Errorf("platform %s: bank width %d out of range", p.Name, p.BankWidth)
	}
	if p.Pin < 0 {
		return fmt.Errorf("platform %s: invalid pin %d", p.Name, p.Pin)
	}
	if p.PinmuxReg%4 != 0 || p.DataReg%4 != 0 {
		return fmt.Errorf("platform %s: register offsets must be 32-bit aligned", p.Name)
	}
	if p.PinmuxMask == 0 {
		return fmt.Errorf("platform %s: empty pin-mux field", p.Name)
	}
	return nil
}

const defaultPlatform = "zynq7000"

// platforms holds the built-in board descriptors.
var platforms = map[string]Platform{
	// MIO pin 42 on the Zynq-7000 PS. MIO 32-53 form GPIO bank 1.
	"zynq7000": {
		Name:        "zynq7000",
		Description: "Xilinx Zynq-7000, MIO pin 42 (bank 1, bit 10)",
		PinmuxBase:  0xF8000000, // SLCR
		PinmuxReg:   0x000007A8, // MIO_PIN_42
		PinmuxMask:  0xFF,       // L0..L3_SEL, TRI_ENABLE: zero selects GPIO
		GPIOBase:    0xE000A000,
		DataReg:     0x00000044, // DATA_1
		Pin:         42,
		BankWidth:   32,
	},
}

// lookupPlatform returns the named descriptor.
func lookupPlatform(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return Platform{}, fmt.Errorf("unknown platform: %s", name)
	}
	return p, nil
}

// printPlatforms lists the built-in descriptors, one per line.
func printPlatforms() {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := platforms[name]
		pc := p.PinConfig()
		fmt.Printf("%-12s %s (pinmux %#x+%#x, gpio %#x+%#x, mask %#08x)\n",
			name, p.Description, p.PinmuxBase, p.PinmuxReg, p.GPIOBase, p.DataReg, pc.Mask)
	}
}
