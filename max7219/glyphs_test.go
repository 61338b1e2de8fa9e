// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import "testing"

func TestReverseGlyphs(t *testing.T) {
	testVals := GlyphTable{1: {0x01, 0xaa}, 2: {0x80, 0x55}}
	expected := GlyphTable{1: {0x80, 0x55}, 2: {0x01, 0xaa}}
	if got := reverseGlyphs(&testVals); *got != expected {
		for code := range expected {
			if got[code] != expected[code] {
				t.Errorf("glyph[%d] expected % x found: % x", code, expected[code], got[code])
			}
		}
	}
	if testVals[1][0] != 0x01 {
		t.Error("source table was modified")
	}
}

func TestGlyphs(t *testing.T) {
	// Verify our glyphs look OK.
	if CP437Glyphs[0] != (Glyph{}) {
		t.Errorf("glyph 0 must be blank, got % x", CP437Glyphs[0])
	}
	if CP437Glyphs[' '] != (Glyph{}) {
		t.Errorf("space must be blank, got % x", CP437Glyphs[' '])
	}
	for c := byte('!'); c <= '~'; c++ {
		if CP437Glyphs[c] == (Glyph{}) {
			t.Errorf("printable character %q has no glyph", c)
		}
	}
	if CP437Glyphs[0xdb] != (Glyph{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("full block is % x", CP437Glyphs[0xdb])
	}
	// Bit 0 is the leftmost pixel.
	for line, b := range CP437Glyphs[0xdd] {
		if b != 0x0f {
			t.Errorf("left half line %d = 0x%x", line, b)
		}
	}
}
