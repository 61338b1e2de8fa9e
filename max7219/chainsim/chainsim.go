// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chainsim simulates a chain of daisy-chained MAX7219 chips at the
// bus level.
//
// Every chip has a 16 bit shift register. Each byte clocked in enters the chip
// nearest to the controller, and what falls out of a chip's shift register
// enters the next one. When chip select rises, every chip decodes the last 16
// bits it holds as a register address and a value.
//
// A Chain implements max7219.Transport and max7219.ChipSelect, so it can be
// used in place of real hardware, for tests or with Screen to watch a chain
// on a terminal.
package chainsim

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFault is returned by injected failures.
var ErrFault = errors.New("chainsim: injected fault")

const (
	regNoop        = 0x0
	regDigit0      = 0x1
	regIntensity   = 0xa
	regScanLimit   = 0xb
	regShutdown    = 0xc
	regDisplayTest = 0xf
)

// Chain is a simulated chain of MAX7219 chips. Device 0 is the nearest to the
// controller.
type Chain struct {
	mu sync.Mutex
	// shift holds two bytes per device, most recently clocked byte first:
	// shift[2*i] is the data byte of device i, shift[2*i+1] its address.
	shift        []byte
	regs         [][16]byte
	selected     bool
	transactions int
	clocked      []byte
	failAfter    int
	failSelect   error

	// Bit level state, driven through Pins.
	pins [3]*Pin
	acc  byte
	bits int
}

// New returns a chain of n chips, all registers cleared.
func New(n int) *Chain {
	if n <= 0 {
		panic("chainsim: invalid number of devices")
	}
	return &Chain{
		shift:     make([]byte, 2*n),
		regs:      make([][16]byte, n),
		failAfter: -1,
	}
}

func (c *Chain) String() string {
	return fmt.Sprintf("chainsim.Chain{%d}", len(c.regs))
}

// NumDevices returns the number of simulated chips.
func (c *Chain) NumDevices() int {
	return len(c.regs)
}

// Transfer clocks one byte into the chain.
func (c *Chain) Transfer(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter == 0 {
		return ErrFault
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	copy(c.shift[1:], c.shift[:len(c.shift)-1])
	c.shift[0] = b
	c.clocked = append(c.clocked, b)
	return nil
}

// Assert pulls chip select low.
func (c *Chain) Assert() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSelect != nil {
		return c.failSelect
	}
	c.selected = true
	return nil
}

// Deassert pulls chip select high, latching the shift register of every chip.
func (c *Chain) Deassert() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return nil
	}
	c.selected = false
	c.transactions++
	for i := range c.regs {
		addr := c.shift[2*i+1] & 0x0f
		if addr == regNoop {
			continue
		}
		c.regs[i][addr] = c.shift[2*i]
	}
	return nil
}

// FailTransferAfter makes Transfer fail once n more bytes were clocked. A
// negative n disables the fault.
func (c *Chain) FailTransferAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
}

// FailSelect makes Assert return err. A nil err disables the fault.
func (c *Chain) FailSelect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSelect = err
}

// Selected reports whether chip select is currently low.
func (c *Chain) Selected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Transactions returns the number of chip select rising edges seen.
func (c *Chain) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactions
}

// Bytes returns a copy of every byte clocked into the chain.
func (c *Chain) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.clocked...)
}

// Register returns the latched value of register addr of a device.
func (c *Chain) Register(device int, addr byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[device][addr&0x0f]
}

// Rows returns the 8 digit registers of a device, top row first.
func (c *Chain) Rows(device int) [8]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var rows [8]byte
	copy(rows[:], c.regs[device][regDigit0:regDigit0+8])
	return rows
}

// snapshot returns a copy of every device's registers.
func (c *Chain) snapshot() [][16]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][16]byte(nil), c.regs...)
}
