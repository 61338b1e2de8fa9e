// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package chainsim

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for a Screen.
type Opts struct {
	// W defaults to stdout, with ANSI codes translated on Windows.
	W       io.Writer
	Palette *ansi256.Palette
	// Lit is the color of a LED at full intensity. Defaults to red.
	Lit color.NRGBA
	// Dark is the color of a LED turned off. Defaults to black.
	Dark color.NRGBA

	_ struct{}
}

// Screen renders the latched state of a Chain on a terminal using ANSI color
// codes. Device 0 is drawn on the left.
//
// Intensity, shutdown, display test and scan limit registers are honored the
// way the chips would.
type Screen struct {
	w       io.Writer
	palette *ansi256.Palette
	lit     color.NRGBA
	dark    color.NRGBA

	drawn bool
	buf   bytes.Buffer
}

// NewScreen returns a Screen for opts. A nil opts uses the defaults.
func NewScreen(opts *Opts) *Screen {
	if opts == nil {
		opts = &Opts{}
	}
	s := &Screen{w: opts.W, palette: opts.Palette, lit: opts.Lit, dark: opts.Dark}
	if s.w == nil {
		s.w = colorable.NewColorableStdout()
	}
	if s.palette == nil {
		s.palette = ansi256.Default
	}
	if s.lit == (color.NRGBA{}) {
		s.lit = color.NRGBA{R: 255, A: 255}
	}
	if s.dark == (color.NRGBA{}) {
		s.dark = color.NRGBA{A: 255}
	}
	return s
}

func (s *Screen) String() string {
	return "chainsim.Screen"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not corrupted.
func (s *Screen) Halt() error {
	_, err := s.w.Write([]byte("\033[0m\n"))
	return err
}

// scale dims c according to an intensity register value.
func scale(c color.NRGBA, intensity byte) color.NRGBA {
	n := uint16(intensity&0x0f) + 1
	return color.NRGBA{
		R: uint8(uint16(c.R) * n / 16),
		G: uint8(uint16(c.G) * n / 16),
		B: uint8(uint16(c.B) * n / 16),
		A: c.A,
	}
}

// Render draws the 8 rows of the chain. Subsequent calls overwrite the
// previous drawing in place.
func (s *Screen) Render(c *Chain) error {
	regs := c.snapshot()
	// This code is designed to minimize the amount of memory allocated per call.
	s.buf.Reset()
	if s.drawn {
		_, _ = s.buf.WriteString("\033[8A")
	}
	for row := 0; row < 8; row++ {
		_, _ = s.buf.WriteString("\r\033[0m")
		for _, r := range regs {
			lit := scale(s.lit, r[regIntensity])
			test := r[regDisplayTest]&1 != 0
			on := r[regShutdown]&1 != 0 && row <= int(r[regScanLimit]&7)
			for bit := 0; bit < 8; bit++ {
				col := s.dark
				switch {
				case test:
					col = s.lit
				case on && r[regDigit0+row]&(1<<uint(bit)) != 0:
					col = lit
				}
				_, _ = io.WriteString(&s.buf, s.palette.Block(col))
			}
		}
		_, _ = s.buf.WriteString("\033[0m\n")
	}
	s.drawn = true
	_, err := s.buf.WriteTo(s.w)
	return err
}
