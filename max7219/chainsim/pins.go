// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package chainsim

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrNotImplemented is returned by the pin functions the chip doesn't have.
var ErrNotImplemented = errors.New("chainsim: not implemented")

const (
	pinDin = iota
	pinClk
	pinLoad
)

var pinNames = [...]string{"DIN", "CLK", "LOAD"}

// Pin is one of the three input pins of the simulated chain. Writing to them
// clocks bits in the way a bit-banged bus would.
type Pin struct {
	chain  *Chain
	number int
	level  gpio.Level
}

// Pins returns the data, clock and chip select (LOAD) pins of the chain. Bits
// are sampled on the rising edge of the clock, most significant bit first.
func (c *Chain) Pins() (din, clk, load *Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pins[0] == nil {
		for ix := range c.pins {
			c.pins[ix] = &Pin{chain: c, number: ix}
		}
		// LOAD idles high.
		c.pins[pinLoad].level = gpio.High
	}
	return c.pins[pinDin], c.pins[pinClk], c.pins[pinLoad]
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns the name of the pin.
func (p *Pin) Name() string {
	return pinNames[p.number]
}

// Number returns the number of the pin.
func (p *Pin) Number() int {
	return p.number
}

// Deprecated: returns "Out"
func (p *Pin) Function() string {
	return "Out"
}

// Out sets the level of the pin.
func (p *Pin) Out(l gpio.Level) error {
	c := p.chain
	c.mu.Lock()
	prev := p.level
	p.level = l
	var clocked bool
	var b byte
	if p.number == pinClk && !prev && l {
		c.acc = c.acc<<1 | byte(boolToBit(c.pins[pinDin].level))
		c.bits++
		if c.bits == 8 {
			clocked, b = true, c.acc
			c.bits, c.acc = 0, 0
		}
	}
	c.mu.Unlock()

	switch {
	case clocked:
		return c.Transfer(b)
	case p.number == pinLoad && bool(prev && !l):
		return c.Assert()
	case p.number == pinLoad && bool(!prev && l):
		return c.Deassert()
	}
	return nil
}

// Not implemented.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (p *Pin) String() string {
	return fmt.Sprintf("%s.%s", p.chain, p.Name())
}

func boolToBit(l gpio.Level) int {
	if l {
		return 1
	}
	return 0
}

var _ gpio.PinOut = &Pin{}
