// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDeviceCount is returned by the constructors when the chain has
	// no device.
	ErrInvalidDeviceCount = errors.New("max7219: invalid value for number of cascaded units")
	// ErrInvalidLineIndex is returned when a row index is outside 0-7.
	ErrInvalidLineIndex = errors.New("max7219: invalid line index")
	// ErrInvalidPayloadLength is returned when a line payload doesn't have
	// exactly one byte per device.
	ErrInvalidPayloadLength = errors.New("max7219: invalid payload length")
	// ErrInvalidDeviceIndex is returned when a device index is outside the
	// chain.
	ErrInvalidDeviceIndex = errors.New("max7219: invalid device index")
)

// TransportError is returned when the byte transport failed in the middle of
// a transaction. The bytes already clocked out may have been latched by the
// chain when chip select was released.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("max7219: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PinError is returned when the chip select line couldn't be driven.
type PinError struct {
	// Op is "assert" or "deassert".
	Op  string
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("max7219: chip select %s: %v", e.Op, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}
