// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// The max7219 package drives a chain of daisy-chained MAX7219 8x8 LED matrix
// modules. It handles how data is shifted from one chip to the next so that
// commands can be broadcast to the whole chain, a single module can be
// addressed, and text can be rendered at any horizontal pixel offset for
// scrolling.
//
// A Dev is not safe for concurrent use. Every method performs its bus writes
// before returning.
package max7219

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Command is a MAX7219 register address.
type Command byte

const (
	Noop          Command = 0x0
	Digit0        Command = 0x1
	Digit1        Command = 0x2
	Digit2        Command = 0x3
	Digit3        Command = 0x4
	Digit4        Command = 0x5
	Digit5        Command = 0x6
	Digit6        Command = 0x7
	Digit7        Command = 0x8
	DecodeModeReg Command = 0x9
	Intensity     Command = 0xa
	ScanLimit     Command = 0xb
	OnOff         Command = 0xc
	DisplayTest   Command = 0xf
)

// Rows is the number of row registers, and the number of columns, of a
// matrix module.
const Rows = 8

// DecodeMode is the mode for handling data. Refer to the datasheet for
// more information.
type DecodeMode byte

const (
	// DecodeB makes the chip decode digit registers as Code B font values for
	// 7-segment displays.
	DecodeB DecodeMode = 0xff
	// DecodeNone is RAW mode, or not decoded. For each byte, bits that are
	// one are turned on in the matrix, and bits that are 0 turn off the
	// led at that row/column.
	DecodeNone DecodeMode = 0
)

// Dev is a chain of Maxim MAX7219/MAX7221 devices driving 8x8 matrices.
type Dev struct {
	t  Transport
	cs ChipSelect
	// units is the number of 7219 units daisy-chained together.
	units  int
	glyphs GlyphTable
	// frame is the last image rendered by Draw, row-major, one byte per unit.
	frame []byte
}

// New returns a Dev driving units chips through t, framing each transaction
// with cs. It doesn't touch the bus; call Init to program the chips.
func New(t Transport, cs ChipSelect, units int) (*Dev, error) {
	if units <= 0 {
		return nil, ErrInvalidDeviceCount
	}
	return &Dev{t: t, cs: cs, units: units, glyphs: CP437Glyphs}, nil
}

// NewSPI creates a new chain using the specified spi.Port. units is the number
// of Max7219 chips daisy-chained together. The chips are initialized.
func NewSPI(p spi.Port, units int) (*Dev, error) {
	if units <= 0 {
		return nil, ErrInvalidDeviceCount
	}
	// It works in Mode0, Mode2 and Mode3.
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("max7219: %v", err)
	}
	s := NewSPIConn(c)
	d, err := New(s, s, units)
	if err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewGPIO creates a new chain bit-banged on three GPIO pins. The chips are
// initialized.
func NewGPIO(data, clock, cs gpio.PinOut, units int) (*Dev, error) {
	if units <= 0 {
		return nil, ErrInvalidDeviceCount
	}
	if err := clock.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("max7219: %v", err)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, &PinError{Op: "deassert", Err: err}
	}
	d, err := New(&BitBang{Data: data, Clock: clock}, PinSelect{Pin: cs}, units)
	if err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Init puts the display in the default mode: display test off, intensity at
// the middle, all 8 rows scanned, no decoding, and cleared.
func (d *Dev) Init() error {
	initCommands := [][2]byte{
		{byte(DisplayTest), 0x0},
		{byte(OnOff), 0x00},
		{byte(Intensity), 0x08},
		{byte(ScanLimit), Rows - 1},
		{byte(OnOff), 0x01},
	}
	for _, cmd := range initCommands {
		if err := d.WriteRawAll(cmd[0], cmd[1]); err != nil {
			return err
		}
	}
	if err := d.SetDecode(DecodeNone); err != nil {
		return err
	}
	return d.ClearAll()
}

// NumDevices returns the number of chips in the chain.
func (d *Dev) NumDevices() int {
	return d.units
}

func (d *Dev) String() string {
	return fmt.Sprintf("max7219.Dev{%d}", d.units)
}

// Halt implements conn.Resource. It puts every chip in shutdown mode.
func (d *Dev) Halt() error {
	return d.Shutdown(true)
}

// tx sends w as one transaction. Chip select is released even when the
// transport fails, so the bus is never left selected.
func (d *Dev) tx(w []byte) error {
	if err := d.cs.Assert(); err != nil {
		return &PinError{Op: "assert", Err: err}
	}
	var err error
	for _, b := range w {
		if err = d.t.Transfer(b); err != nil {
			err = &TransportError{Err: err}
			break
		}
	}
	if e := d.cs.Deassert(); e != nil {
		var te *TransportError
		if !errors.As(e, &te) {
			e = &PinError{Op: "deassert", Err: e}
		}
		if err != nil {
			return errors.Join(err, e)
		}
		return e
	}
	return err
}

// WriteCommandAll writes the same command to every chip of the chain.
func (d *Dev) WriteCommandAll(cmd Command, data byte) error {
	return d.WriteRawAll(byte(cmd), data)
}

// WriteRawAll writes to a data register or command register of every chip in
// a single transaction. Data registers are 1-8, and command registers are > 8.
func (d *Dev) WriteRawAll(register, data byte) error {
	w := make([]byte, d.units*2)
	for ix := 0; ix < d.units; ix++ {
		w[ix*2] = register
		w[ix*2+1] = data
	}
	return d.tx(w)
}

// ClearAll turns off every LED of the chain.
func (d *Dev) ClearAll() error {
	for line := 0; line < Rows; line++ {
		if err := d.WriteCommandAll(Digit0+Command(line), 0); err != nil {
			return err
		}
	}
	return nil
}

// WriteLineRaw writes one row of the chain in a single transaction. payload
// holds one byte per device, payload[0] being for the chip nearest to the
// controller. The bytes for the furthest chip are clocked out first.
func (d *Dev) WriteLineRaw(line int, payload []byte) error {
	if line < 0 || line >= Rows {
		return ErrInvalidLineIndex
	}
	if len(payload) != d.units {
		return ErrInvalidPayloadLength
	}
	w := make([]byte, 0, d.units*2)
	for unit := d.units - 1; unit >= 0; unit-- {
		w = append(w, byte(Digit0)+byte(line), payload[unit])
	}
	return d.tx(w)
}

// WriteDeviceRaw writes a register of a single chip of the chain. The other
// chips receive no-op pairs so they keep their latched values.
//
// Each chip keeps the last 16 bits shifted in when chip select rises, so the
// real pair must be the (device+1)th pair counting from the end of the
// transaction.
func (d *Dev) WriteDeviceRaw(device int, register, data byte) error {
	if device < 0 || device >= d.units {
		return ErrInvalidDeviceIndex
	}
	w := make([]byte, 0, d.units*2)
	for unit := d.units - 1; unit >= 0; unit-- {
		if unit == device {
			w = append(w, register, data)
		} else {
			w = append(w, byte(Noop), 0)
		}
	}
	return d.tx(w)
}

// SetDecode tells the chips whether values should be decoded for a 7 segment
// display, or if they should be interpreted literally. Refer to the datasheet
// for more detailed information.
func (d *Dev) SetDecode(mode DecodeMode) error {
	return d.WriteCommandAll(DecodeModeReg, byte(mode))
}

// SetIntensity controls the brightness of the display. The allowed range for
// intensity is from 0-15. Keep in mind that the brighter display, the more
// current drawn.
func (d *Dev) SetIntensity(intensity byte) error {
	return d.WriteCommandAll(Intensity, intensity&0x0f)
}

// TestDisplay turns on the 7219 display mode which set all LEDs on, and the
// intensity to maximum. If you're using multiple units, you should be aware
// of the current draw, and limit how long you leave this on.
func (d *Dev) TestDisplay(on bool) error {
	if on {
		return d.WriteCommandAll(DisplayTest, 1)
	}
	return d.WriteCommandAll(DisplayTest, 0)
}

// Shutdown blanks every chip while keeping register contents.
func (d *Dev) Shutdown(off bool) error {
	if off {
		return d.WriteCommandAll(OnOff, 0)
	}
	return d.WriteCommandAll(OnOff, 1)
}
