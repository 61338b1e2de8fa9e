// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// Transport clocks single bytes out to the first chip of the chain.
//
// A full-duplex implementation must consume the byte clocked in while sending
// before it returns.
type Transport interface {
	Transfer(b byte) error
}

// ChipSelect frames a transaction. Assert pulls the LOAD/CS line low, Deassert
// pulls it high, which latches the last 16 bits shifted into every chip.
type ChipSelect interface {
	Assert() error
	Deassert() error
}

// SPI frames transactions on a periph spi.Conn. It implements both Transport
// and ChipSelect: bytes transferred while asserted are buffered and sent as a
// single Tx on Deassert, so the SPI port's own chip select line frames exactly
// one transaction.
//
// Since nothing reaches the bus before Deassert, transport failures are
// reported from Deassert as a *TransportError.
type SPI struct {
	conn  spi.Conn
	frame []byte
	open  bool
}

// NewSPIConn returns a SPI framer on an already connected spi.Conn.
func NewSPIConn(c spi.Conn) *SPI {
	return &SPI{conn: c}
}

// Assert implements ChipSelect.
func (s *SPI) Assert() error {
	s.frame = s.frame[:0]
	s.open = true
	return nil
}

// Transfer implements Transport.
func (s *SPI) Transfer(b byte) error {
	if !s.open {
		return errors.New("max7219: spi transfer outside of a transaction")
	}
	s.frame = append(s.frame, b)
	return nil
}

// Deassert implements ChipSelect.
func (s *SPI) Deassert() error {
	if !s.open {
		return nil
	}
	s.open = false
	if len(s.frame) == 0 {
		return nil
	}
	// The response bytes are of no use; a nil read buffer lets the connection
	// drain them.
	if err := s.conn.Tx(s.frame, nil); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

func (s *SPI) String() string {
	return s.conn.String()
}

// PinSelect drives an active-low chip select line on a GPIO pin.
type PinSelect struct {
	Pin gpio.PinOut
}

// Assert implements ChipSelect.
func (p PinSelect) Assert() error {
	return p.Pin.Out(gpio.Low)
}

// Deassert implements ChipSelect.
func (p PinSelect) Deassert() error {
	return p.Pin.Out(gpio.High)
}

// BitBang shifts bytes out on two GPIO pins, most significant bit first. The
// MAX7219 samples DIN on the rising edge of CLK, so the clock idles low.
type BitBang struct {
	Data  gpio.PinOut
	Clock gpio.PinOut
}

// Transfer implements Transport.
func (b *BitBang) Transfer(v byte) error {
	for bit := 7; bit >= 0; bit-- {
		if err := b.Data.Out(gpio.Level(v&(1<<uint(bit)) != 0)); err != nil {
			return err
		}
		if err := b.Clock.Out(gpio.High); err != nil {
			return err
		}
		if err := b.Clock.Out(gpio.Low); err != nil {
			return err
		}
	}
	return nil
}

var _ Transport = &SPI{}
var _ ChipSelect = &SPI{}
var _ ChipSelect = PinSelect{}
var _ Transport = &BitBang{}
