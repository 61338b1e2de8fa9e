// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

// splitOffset splits a pixel offset into whole characters, rounded toward
// negative infinity, and the remaining pixels in [0, 7].
func splitOffset(x int) (charShift, bitShift int) {
	// Arithmetic shifts floor negative values.
	return x >> 3, x & 7
}

// blendRow returns one row of the character mid displaced by shift pixels.
// A negative shift pulls in the pixels of right, a positive one those of left.
func blendRow(left, mid, right byte, shift int) byte {
	switch {
	case shift == 0:
		return mid
	case shift < 0:
		k := uint(-shift)
		return mid>>k | right<<(8-k)
	default:
		k := uint(shift)
		return mid<<k | left>>(8-k)
	}
}

// glyph returns the glyph of text[i], or a blank one when i is outside text.
func (d *Dev) glyph(text []byte, i int) *Glyph {
	if i < 0 || i >= len(text) {
		return &d.glyphs[0]
	}
	return &d.glyphs[text[i]]
}

// composeRow returns the byte shown on row line of the device displaying the
// character at index char of text.
func (d *Dev) composeRow(text []byte, char, line, bitShift int) byte {
	if char < -1 || char > len(text) {
		return 0
	}
	left := d.glyph(text, char-1)
	mid := d.glyph(text, char)
	right := d.glyph(text, char+1)
	return blendRow(left[line], mid[line], right[line], bitShift)
}

// WriteTextAtOffset renders text with the left edge of its first character at
// horizontal pixel x, pixel 0 being the left edge of device 0. x may be
// negative or beyond the chain; what falls outside the chain is not shown.
//
// Every device byte only depends on three neighboring characters and the
// sub-character shift, so each row of the chain is written in one
// transaction, 8 transactions in total.
func (d *Dev) WriteTextAtOffset(text []byte, x int) error {
	charShift, bitShift := splitOffset(x)
	payload := make([]byte, d.units)
	for line := 0; line < Rows; line++ {
		for unit := 0; unit < d.units; unit++ {
			payload[unit] = d.composeRow(text, unit-charShift, line, bitShift)
		}
		if err := d.WriteLineRaw(line, payload); err != nil {
			return err
		}
	}
	return nil
}

// WriteChar draws the glyph of c on a single device, leaving the others
// untouched.
func (d *Dev) WriteChar(device int, c byte) error {
	if device < 0 || device >= d.units {
		return ErrInvalidDeviceIndex
	}
	g := &d.glyphs[c]
	for line, b := range g {
		if err := d.WriteDeviceRaw(device, byte(Digit0)+byte(line), b); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes text[i] on device i. Characters past the end of the
// chain are ignored, and devices past the end of text are left untouched.
func (d *Dev) WriteString(text []byte) error {
	for ix, c := range text {
		if ix >= d.units {
			break
		}
		if err := d.WriteChar(ix, c); err != nil {
			return err
		}
	}
	return nil
}
