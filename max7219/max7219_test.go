// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/GermanBionicSystems/max7219chain/max7219/chainsim"
)

func verifyOperations(found, expected []conntest.IO) error {
	if len(found) != len(expected) {
		return fmt.Errorf("invalid length. found length: %d expected length: %d", len(found), len(expected))
	}
	for outer := 0; outer < len(expected); outer++ {
		if !bytes.Equal(found[outer].W, expected[outer].W) {
			return fmt.Errorf("data not as expected. found[%d]=% x expected % x",
				outer,
				found[outer].W,
				expected[outer].W)
		}
	}
	return nil
}

func newSim(t *testing.T, units int) (*Dev, *chainsim.Chain) {
	t.Helper()
	chain := chainsim.New(units)
	dev, err := New(chain, chain, units)
	if err != nil {
		t.Fatal(err)
	}
	return dev, chain
}

func TestNewInvalidUnits(t *testing.T) {
	chain := chainsim.New(1)
	for _, units := range []int{0, -1} {
		if _, err := New(chain, chain, units); !errors.Is(err, ErrInvalidDeviceCount) {
			t.Errorf("New(%d) = %v, expected %v", units, err, ErrInvalidDeviceCount)
		}
		if _, err := NewSPI(&spitest.Record{}, units); !errors.Is(err, ErrInvalidDeviceCount) {
			t.Errorf("NewSPI(%d) = %v, expected %v", units, err, ErrInvalidDeviceCount)
		}
	}
	if len(chain.Bytes()) != 0 {
		t.Error("bus activity on invalid construction")
	}
}

func TestInit(t *testing.T) {
	record := &spitest.Record{}

	dev, err := NewSPI(record, 1)
	if err != nil {
		t.Fatal(err)
	}
	if dev.NumDevices() != 1 {
		t.Errorf("NumDevices() = %d", dev.NumDevices())
	}
	expected := []conntest.IO{
		{W: []uint8{0xf, 0x0}}, // Disable self-test
		{W: []uint8{0xc, 0x0}}, // Shutdown - Enter Shutdown Mode
		{W: []uint8{0xa, 0x8}}, // Intensity
		{W: []uint8{0xb, 0x7}}, // Scan Limit
		{W: []uint8{0xc, 0x1}}, // Shutdown - Resume Normal Mode
		{W: []uint8{0x9, 0x0}}, // Decode Mode
		{W: []uint8{0x1, 0x0}}, // Clear rows 1-8
		{W: []uint8{0x2, 0x0}},
		{W: []uint8{0x3, 0x0}},
		{W: []uint8{0x4, 0x0}},
		{W: []uint8{0x5, 0x0}},
		{W: []uint8{0x6, 0x0}},
		{W: []uint8{0x7, 0x0}},
		{W: []uint8{0x8, 0x0}}}

	if err := verifyOperations(record.Ops, expected); err != nil {
		t.Error(err)
	}
}

func TestCommand(t *testing.T) {
	// Verify a command is replicated #units times.
	record := &spitest.Record{}

	dev, err := NewSPI(record, 4)
	if err != nil {
		t.Fatal(err)
	}
	record.Ops = make([]conntest.IO, 0)
	if err = dev.SetIntensity(0x1b); err != nil {
		t.Error(err)
	}
	expected := []conntest.IO{
		{W: []uint8{0xa, 0xb, 0xa, 0xb, 0xa, 0xb, 0xa, 0xb}}} // Set intensity register and the value replicated units times.

	if err := verifyOperations(record.Ops, expected); err != nil {
		t.Error(err)
	}
}

func TestSettings(t *testing.T) {
	dev, chain := newSim(t, 2)
	steps := []struct {
		f    func() error
		reg  Command
		want byte
	}{
		{func() error { return dev.TestDisplay(true) }, DisplayTest, 1},
		{func() error { return dev.TestDisplay(false) }, DisplayTest, 0},
		{func() error { return dev.Shutdown(false) }, OnOff, 1},
		{func() error { return dev.Halt() }, OnOff, 0},
		{func() error { return dev.SetDecode(DecodeB) }, DecodeModeReg, 0xff},
		{func() error { return dev.SetIntensity(3) }, Intensity, 3},
	}
	for i, s := range steps {
		if err := s.f(); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		for unit := 0; unit < 2; unit++ {
			if got := chain.Register(unit, byte(s.reg)); got != s.want {
				t.Errorf("#%d: unit %d register 0x%x = 0x%x, expected 0x%x", i, unit, s.reg, got, s.want)
			}
		}
	}
}

func TestBroadcastFraming(t *testing.T) {
	for units := 1; units <= 6; units++ {
		dev, chain := newSim(t, units)
		if err := dev.WriteRawAll(byte(Digit3), 0x5a); err != nil {
			t.Fatal(err)
		}
		if n := len(chain.Bytes()); n != 2*units {
			t.Errorf("%d units: %d bytes clocked, expected %d", units, n, 2*units)
		}
		if n := chain.Transactions(); n != 1 {
			t.Errorf("%d units: %d transactions, expected 1", units, n)
		}
		for unit := 0; unit < units; unit++ {
			if got := chain.Register(unit, byte(Digit3)); got != 0x5a {
				t.Errorf("%d units: unit %d = 0x%x", units, unit, got)
			}
		}
	}
}

func TestClearAll(t *testing.T) {
	dev, chain := newSim(t, 3)
	for line := 0; line < Rows; line++ {
		if err := dev.WriteLineRaw(line, []byte{0xff, 0x81, 0x18}); err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.ClearAll(); err != nil {
		t.Fatal(err)
	}
	if n := chain.Transactions(); n != 16 {
		t.Errorf("%d transactions, expected 16", n)
	}
	for unit := 0; unit < 3; unit++ {
		if rows := chain.Rows(unit); rows != [8]byte{} {
			t.Errorf("unit %d not cleared: % x", unit, rows)
		}
	}
}

func TestWriteLineRaw(t *testing.T) {
	dev, chain := newSim(t, 3)
	if err := dev.WriteLineRaw(2, []byte{0x11, 0x22, 0x33}); err != nil {
		t.Fatal(err)
	}
	// The furthest unit is clocked first.
	if got, want := chain.Bytes(), []byte{3, 0x33, 3, 0x22, 3, 0x11}; !bytes.Equal(got, want) {
		t.Errorf("clocked % x, expected % x", got, want)
	}
	for unit, want := range []byte{0x11, 0x22, 0x33} {
		if got := chain.Rows(unit)[2]; got != want {
			t.Errorf("unit %d row 2 = 0x%x, expected 0x%x", unit, got, want)
		}
	}
}

func TestWriteLineRawInvalid(t *testing.T) {
	dev, chain := newSim(t, 2)
	data := []struct {
		line    int
		payload []byte
		err     error
	}{
		{8, []byte{1, 2}, ErrInvalidLineIndex},
		{-1, []byte{1, 2}, ErrInvalidLineIndex},
		{0, []byte{1}, ErrInvalidPayloadLength},
		{0, []byte{1, 2, 3}, ErrInvalidPayloadLength},
		{7, nil, ErrInvalidPayloadLength},
	}
	for i, line := range data {
		if err := dev.WriteLineRaw(line.line, line.payload); !errors.Is(err, line.err) {
			t.Errorf("#%d: got %v, expected %v", i, err, line.err)
		}
	}
	if len(chain.Bytes()) != 0 || chain.Transactions() != 0 {
		t.Error("bus activity on invalid input")
	}
}

func TestWriteDeviceRaw(t *testing.T) {
	const units = 4
	for device := 0; device < units; device++ {
		dev, chain := newSim(t, units)
		if err := dev.WriteRawAll(byte(Digit0), 0xff); err != nil {
			t.Fatal(err)
		}
		if err := dev.WriteDeviceRaw(device, byte(Digit0), 0x5a); err != nil {
			t.Fatal(err)
		}
		last := chain.Bytes()[2*units:]
		for pair := 0; pair < units; pair++ {
			want := []byte{0, 0}
			if pair == units-1-device {
				want = []byte{byte(Digit0), 0x5a}
			}
			if got := last[2*pair : 2*pair+2]; !bytes.Equal(got, want) {
				t.Errorf("device %d: pair %d = % x, expected % x", device, pair, got, want)
			}
		}
		for unit := 0; unit < units; unit++ {
			want := byte(0xff)
			if unit == device {
				want = 0x5a
			}
			if got := chain.Register(unit, byte(Digit0)); got != want {
				t.Errorf("device %d: unit %d = 0x%x, expected 0x%x", device, unit, got, want)
			}
		}
	}
}

func TestWriteDeviceRawInvalid(t *testing.T) {
	dev, chain := newSim(t, 2)
	for _, device := range []int{-1, 2, 100} {
		if err := dev.WriteDeviceRaw(device, byte(Digit0), 1); !errors.Is(err, ErrInvalidDeviceIndex) {
			t.Errorf("WriteDeviceRaw(%d) = %v", device, err)
		}
	}
	if len(chain.Bytes()) != 0 {
		t.Error("bus activity on invalid input")
	}
}

func TestTransportFailure(t *testing.T) {
	dev, chain := newSim(t, 4)
	chain.FailTransferAfter(3)
	err := dev.WriteRawAll(byte(Intensity), 2)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransportError, got %v", err)
	}
	if !errors.Is(err, chainsim.ErrFault) {
		t.Errorf("cause not wrapped: %v", err)
	}
	if n := len(chain.Bytes()); n != 3 {
		t.Errorf("%d bytes clocked, the transaction should stop at the failure", n)
	}
	if chain.Selected() {
		t.Error("chip select left asserted")
	}
}

func TestPinFailure(t *testing.T) {
	dev, chain := newSim(t, 2)
	errPin := errors.New("pin stuck")
	chain.FailSelect(errPin)
	err := dev.WriteLineRaw(0, []byte{1, 2})
	var pe *PinError
	if !errors.As(err, &pe) || pe.Op != "assert" {
		t.Fatalf("expected an assert PinError, got %v", err)
	}
	if !errors.Is(err, errPin) {
		t.Errorf("cause not wrapped: %v", err)
	}
	if len(chain.Bytes()) != 0 {
		t.Error("bytes clocked without chip select")
	}
}

type failingRelease struct {
	*chainsim.Chain
	err error
}

func (f *failingRelease) Deassert() error {
	_ = f.Chain.Deassert()
	return f.err
}

func TestDeassertFailure(t *testing.T) {
	errPin := errors.New("pin stuck")
	cs := &failingRelease{Chain: chainsim.New(2), err: errPin}
	dev, err := New(cs.Chain, cs, 2)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.WriteRawAll(byte(Digit0), 1)
	var pe *PinError
	if !errors.As(err, &pe) || pe.Op != "deassert" || !errors.Is(err, errPin) {
		t.Fatalf("expected a deassert PinError, got %v", err)
	}

	// Both failures are reported.
	cs.FailTransferAfter(1)
	err = dev.WriteRawAll(byte(Digit0), 1)
	var te *TransportError
	if !errors.As(err, &te) || !errors.As(err, &pe) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

type failingConn struct {
	spi.Conn
}

func (failingConn) Tx(w, r []byte) error {
	return errors.New("bus error")
}

func TestSPIFraming(t *testing.T) {
	record := &spitest.Record{}
	c, err := record.Connect(0, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSPIConn(c)
	dev, err := New(s, s, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.WriteDeviceRaw(1, byte(Digit7), 0x42); err != nil {
		t.Fatal(err)
	}
	expected := []conntest.IO{{W: []uint8{0, 0, 0x8, 0x42, 0, 0}}}
	if err := verifyOperations(record.Ops, expected); err != nil {
		t.Error(err)
	}
	if err := s.Transfer(1); err == nil {
		t.Error("transfer outside of a transaction should fail")
	}
}

func TestSPIFailure(t *testing.T) {
	s := NewSPIConn(failingConn{})
	dev, err := New(s, s, 2)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.WriteRawAll(byte(Digit0), 1)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransportError, got %v", err)
	}
	var pe *PinError
	if errors.As(err, &pe) {
		t.Errorf("SPI failure reported as a pin failure: %v", err)
	}
}
